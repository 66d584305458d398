// Package tokenizer provides the sequence alphabets paired with pretrained
// checkpoints.
//
// An Alphabet is selected by architecture id and theme:
//   - protein: the 25 amino-acid letters plus "." and "-"
//   - rna: the nucleotide letters A C G U, IUPAC ambiguity codes and "-"
//
// The architecture decides which special tokens surround the standard
// letters, whether a <cls> token is prepended and whether an <eos> token is
// appended when encoding.
//
// Example usage:
//
//	alphabet, err := tokenizer.FromArchitecture("roberta_large", "rna")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokens, err := alphabet.Encode("ACGU<mask>A")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(alphabet.MaskIndex()) // row zeroed in embed_tokens.weight
package tokenizer
