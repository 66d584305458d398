// Package serialization reads and writes checkpoint files.
//
// The native .born format stores a JSON header followed by raw tensor bytes:
//
//	v1:
//	  [4 bytes: Magic "BORN"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
//	v2:
//	  [64 bytes: fixed header with header size, data size and SHA-256 of the data]
//	  [Header: JSON]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// The checkpoint configuration travels as a JSON object under the "args"
// metadata key. SafeTensors output is provided for exchange with other tools.
//
// Example usage:
//
//	writer, err := serialization.NewBornWriter("RNA-FM_pretrained.born")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer writer.Close()
//	err = writer.WriteStateDictV2(params, "roberta_large", map[string]string{"args": argsJSON})
//
//	reader, err := serialization.NewBornReader("RNA-FM_pretrained.born")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//	params, err := reader.ReadStateDict()
package serialization
