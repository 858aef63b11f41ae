//go:build ignore

// compare_state reports the differences between the bridge journals of two
// stopped bridged data directories.
//
//	go run scripts/compare_state.go <data1> <data2>
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/storage"
	"QuantumLink/internal/store"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <data1_path> <data2_path>\n", os.Args[0])
		os.Exit(1)
	}

	img1, err := loadImage(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	img2, err := loadImage(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", os.Args[2], err)
		os.Exit(1)
	}

	fmt.Printf("DATA1 (%s): %d transactions, %d locked assets, next id %d\n",
		os.Args[1], len(img1.Transactions), len(img1.Locked), img1.Meta.NextID)
	fmt.Printf("DATA2 (%s): %d transactions, %d locked assets, next id %d\n",
		os.Args[2], len(img2.Transactions), len(img2.Locked), img2.Meta.NextID)

	diffs := compareTransactions(img1.Transactions, img2.Transactions)
	diffs = append(diffs, compareLocked(img1.Locked, img2.Locked)...)

	if img1.Meta != img2.Meta {
		diffs = append(diffs, fmt.Sprintf("meta: %+v != %+v", img1.Meta, img2.Meta))
	}

	if len(diffs) == 0 {
		fmt.Println("\n✓ States are identical!")
		os.Exit(0)
	}

	fmt.Println("\n✗ States differ:")
	for _, d := range diffs {
		fmt.Printf("  - %s\n", d)
	}

	os.Exit(1)
}

// loadImage reads the full journal image of a data directory.
func loadImage(dataPath string) (bridge.Image, error) {
	db, err := storage.New(filepath.Join(dataPath, "db"))
	if err != nil {
		return bridge.Image{}, err
	}
	defer db.Close()

	img, found, err := store.New(db, bridge.MaxBridgeTransactions, false).Image()
	if err != nil {
		return bridge.Image{}, err
	}

	if !found {
		return bridge.Image{}, fmt.Errorf("no bridge journal")
	}

	return img, nil
}

func compareTransactions(a, b []bridge.Transaction) []string {
	byID := make(map[uint64]bridge.Transaction, len(b))
	for _, tx := range b {
		byID[tx.ID] = tx
	}

	var diffs []string

	for _, tx := range a {
		other, ok := byID[tx.ID]
		delete(byID, tx.ID)

		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("transaction %d only in DATA1", tx.ID))
		case !reflect.DeepEqual(tx, other):
			diffs = append(diffs, fmt.Sprintf("transaction %d: %s != %s", tx.ID, tx.Status, other.Status))
		}
	}

	for id := range byID {
		diffs = append(diffs, fmt.Sprintf("transaction %d only in DATA2", id))
	}

	return diffs
}

func compareLocked(a, b []bridge.LockedBalance) []string {
	byAsset := make(map[uint64]uint64, len(b))
	for _, e := range b {
		byAsset[e.Asset.ID] = e.Amount
	}

	var diffs []string

	for _, e := range a {
		amount, ok := byAsset[e.Asset.ID]
		delete(byAsset, e.Asset.ID)

		if !ok || amount != e.Amount {
			diffs = append(diffs, fmt.Sprintf("locked %s: %d != %d", e.Asset, e.Amount, amount))
		}
	}

	for id, amount := range byAsset {
		diffs = append(diffs, fmt.Sprintf("locked asset %d only in DATA2 (%d)", id, amount))
	}

	return diffs
}
