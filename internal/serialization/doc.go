// Package serialization stores named float64 tensors in the .born format.
//
// The format is a small binary container for model weights and training
// checkpoints:
//
//	Format Structure:
//	  [0x00: 4 bytes Magic "BORN"]
//	  [0x04: 4 bytes Version (uint32 LE)]
//	  [0x08: 4 bytes Flags (uint32 LE)]
//	  [0x0C: 4 bytes Reserved]
//	  [0x10: 8 bytes Header Size (uint64 LE)]
//	  [0x18: 8 bytes Data Size (uint64 LE)]
//	  [0x20: 32 bytes SHA-256 of the data section]
//	  [0x40: Header: JSON metadata]
//	  [Tensor data: little-endian float64, 64-byte aligned]
//
// Example usage:
//
//	w, err := serialization.NewBornWriter("model.born")
//	if err != nil {
//	    return err
//	}
//	if err := w.WriteStateDict(model.StateDict(), header); err != nil {
//	    return err
//	}
//	w.Close()
//
//	r, err := serialization.NewBornReader("model.born")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	stateDict, err := r.ReadStateDict()
package serialization
