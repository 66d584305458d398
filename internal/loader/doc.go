// Package loader reads and writes checkpoint files and fetches pretrained
// checkpoints from a hub.
//
// Supported formats:
//   - SafeTensors: configuration stored as JSON under __metadata__["args"]
//   - .born: the native format from package serialization, same "args" key
//
// Half-precision tensors are loaded as opaque float16/bfloat16 blobs.
//
// Example:
//
//	model, regression, err := loader.LoadLocal("pretrained/RNA-FM_pretrained.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	hub := &loader.Hub{CacheDir: cacheDir}
//	model, regression, err = hub.Fetch(ctx, "esm1b_t33_650M_UR50S")
package loader
