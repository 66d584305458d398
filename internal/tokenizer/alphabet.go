package tokenizer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/erik-whiting/RNA-FM/internal/arch"
)

// Themes.
const (
	ThemeProtein = "protein"
	ThemeRNA     = "rna"
)

// Special tokens.
const (
	TokenCLS  = "<cls>"
	TokenPad  = "<pad>"
	TokenEOS  = "<eos>"
	TokenUnk  = "<unk>"
	TokenMask = "<mask>"
	TokenSep  = "<sep>"
)

var themeTokens = map[string][]string{
	ThemeProtein: {
		"L", "A", "G", "V", "S", "E", "R", "T", "I", "D", "P", "K", "Q", "N",
		"F", "Y", "M", "H", "W", "C", "X", "B", "U", "Z", "O", ".", "-",
	},
	ThemeRNA: {
		"A", "C", "G", "U", "R", "Y", "K", "M", "S", "W", "B", "D", "H", "V", "N", "-",
	},
}

// UnknownThemeError is returned for a theme with no token list.
type UnknownThemeError struct {
	Theme string
}

// Error implements the error interface.
func (e *UnknownThemeError) Error() string {
	return fmt.Sprintf("unknown alphabet theme %q (expected %s)", e.Theme, strings.Join(Themes(), ", "))
}

// Themes returns the known themes in sorted order.
func Themes() []string {
	themes := make([]string, 0, len(themeTokens))
	for name := range themeTokens {
		themes = append(themes, name)
	}
	sort.Strings(themes)
	return themes
}

// layout describes how special tokens surround the standard tokens.
type layout struct {
	prepend     []string
	append      []string
	prependBOS  bool
	appendEOS   bool
	useMSA      bool
	description string
}

var (
	esm1Layout = layout{
		prepend:     []string{"<null_0>", TokenPad, TokenEOS, TokenUnk},
		append:      []string{TokenCLS, TokenMask, TokenSep},
		prependBOS:  true,
		description: "ESM-1",
	}
	esm1bLayout = layout{
		prepend:     []string{TokenCLS, TokenPad, TokenEOS, TokenUnk},
		append:      []string{TokenMask},
		prependBOS:  true,
		appendEOS:   true,
		description: "ESM-1b",
	}
	msaLayout = layout{
		prepend:     []string{TokenCLS, TokenPad, TokenEOS, TokenUnk},
		append:      []string{TokenMask},
		prependBOS:  true,
		useMSA:      true,
		description: "MSA Transformer",
	}
)

var architectureLayouts = map[string]layout{
	arch.ProteinBertBase: esm1Layout,
	"ESM-1":              esm1Layout,
	arch.RobertaLarge:    esm1bLayout,
	"ESM-1b":             esm1bLayout,
	arch.MSATransformer:  msaLayout,
	"MSA Transformer":    msaLayout,
}

// Alphabet maps sequence characters and special tokens to vocabulary indices.
type Alphabet struct {
	tokens     []string
	index      map[string]int32
	special    map[int32]bool
	prependBOS bool
	appendEOS  bool
	useMSA     bool
	version    string

	padIdx  int32
	eosIdx  int32
	unkIdx  int32
	clsIdx  int32
	maskIdx int32
}

// FromArchitecture builds the alphabet used by checkpoints of the given
// architecture. Both the built-in registry ids and the model names (ESM-1,
// ESM-1b, MSA Transformer) are accepted; ids registered later are not.
func FromArchitecture(name, theme string) (*Alphabet, error) {
	l, ok := architectureLayouts[name]
	if !ok {
		return nil, &arch.UnknownArchitectureError{ID: name}
	}
	standard, ok := themeTokens[theme]
	if !ok {
		return nil, &UnknownThemeError{Theme: theme}
	}
	return newAlphabet(standard, l), nil
}

func newAlphabet(standard []string, l layout) *Alphabet {
	tokens := make([]string, 0, len(l.prepend)+len(standard)+8+len(l.append))
	tokens = append(tokens, l.prepend...)
	tokens = append(tokens, standard...)
	for i := 0; len(tokens)%8 != 0; i++ {
		tokens = append(tokens, fmt.Sprintf("<null_%d>", i+1))
	}
	tokens = append(tokens, l.append...)

	a := &Alphabet{
		tokens:     tokens,
		index:      make(map[string]int32, len(tokens)),
		special:    make(map[int32]bool),
		prependBOS: l.prependBOS,
		appendEOS:  l.appendEOS,
		useMSA:     l.useMSA,
		version:    l.description,
	}
	for i, tok := range tokens {
		a.index[tok] = int32(i) //nolint:gosec // vocabulary is tiny
		if isSpecial(tok) {
			a.special[int32(i)] = true //nolint:gosec // vocabulary is tiny
		}
	}

	a.padIdx = a.lookup(TokenPad)
	a.eosIdx = a.lookup(TokenEOS)
	a.unkIdx = a.lookup(TokenUnk)
	a.clsIdx = a.lookup(TokenCLS)
	a.maskIdx = a.lookup(TokenMask)
	return a
}

func isSpecial(tok string) bool {
	return strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">")
}

func (a *Alphabet) lookup(tok string) int32 {
	if idx, ok := a.index[tok]; ok {
		return idx
	}
	return -1
}

// Index returns the index of tok, or the <unk> index when tok is unknown.
func (a *Alphabet) Index(tok string) int32 {
	if idx, ok := a.index[tok]; ok {
		return idx
	}
	return a.unkIdx
}

// Token returns the token string at idx.
func (a *Alphabet) Token(idx int32) (string, error) {
	if idx < 0 || int(idx) >= len(a.tokens) {
		return "", fmt.Errorf("token id %d out of range [0, %d)", idx, len(a.tokens))
	}
	return a.tokens[idx], nil
}

// Tokens returns a copy of the full vocabulary in index order.
func (a *Alphabet) Tokens() []string {
	return append([]string(nil), a.tokens...)
}

// Encode converts a sequence to token IDs. Special tokens written inline
// (e.g. "<mask>") are kept whole; every other character is one token.
// The <cls> and <eos> markers are added according to the architecture.
func (a *Alphabet) Encode(text string) ([]int32, error) {
	ids := make([]int32, 0, len(text)+2)
	if a.prependBOS {
		ids = append(ids, a.clsIdx)
	}

	for i := 0; i < len(text); {
		if text[i] == '<' {
			if end := strings.IndexByte(text[i:], '>'); end > 0 {
				if idx, ok := a.index[text[i:i+end+1]]; ok {
					ids = append(ids, idx)
					i += end + 1
					continue
				}
			}
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		ids = append(ids, a.Index(text[i:i+size]))
		i += size
	}

	if a.appendEOS {
		ids = append(ids, a.eosIdx)
	}
	return ids, nil
}

// Decode converts token IDs back to a string, dropping the <cls>, <eos> and
// <pad> markers.
func (a *Alphabet) Decode(tokens []int32) (string, error) {
	var sb strings.Builder
	for _, id := range tokens {
		tok, err := a.Token(id)
		if err != nil {
			return "", err
		}
		if id == a.clsIdx || id == a.eosIdx || id == a.padIdx {
			continue
		}
		sb.WriteString(tok)
	}
	return sb.String(), nil
}

// VocabSize returns the total vocabulary size.
func (a *Alphabet) VocabSize() int { return len(a.tokens) }

// Size returns the total vocabulary size.
func (a *Alphabet) Size() int { return len(a.tokens) }

// BosToken returns the <cls> index when sequences are prefixed with it.
func (a *Alphabet) BosToken() int32 {
	if !a.prependBOS {
		return -1
	}
	return a.clsIdx
}

// EosToken returns the <eos> index.
func (a *Alphabet) EosToken() int32 { return a.eosIdx }

// PadToken returns the <pad> index.
func (a *Alphabet) PadToken() int32 { return a.padIdx }

// UnkToken returns the <unk> index.
func (a *Alphabet) UnkToken() int32 { return a.unkIdx }

// MaskIndex returns the <mask> index.
func (a *Alphabet) MaskIndex() int { return int(a.maskIdx) }

// PaddingIndex returns the <pad> index.
func (a *Alphabet) PaddingIndex() int { return int(a.padIdx) }

// PrependBOS reports whether encoded sequences start with <cls>.
func (a *Alphabet) PrependBOS() bool { return a.prependBOS }

// AppendEOS reports whether encoded sequences end with <eos>.
func (a *Alphabet) AppendEOS() bool { return a.appendEOS }

// UseMSA reports whether the alphabet encodes multiple sequence alignments.
func (a *Alphabet) UseMSA() bool { return a.useMSA }

// Version returns the model generation the layout belongs to.
func (a *Alphabet) Version() string { return a.version }

// IsSpecialToken checks if a token ID is a special token.
func (a *Alphabet) IsSpecialToken(token int32) bool {
	return a.special[token]
}

var _ Tokenizer = (*Alphabet)(nil)
