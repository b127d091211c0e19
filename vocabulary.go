package cryptotax

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Vocabulary holds every keyword list used by the classifier and the income
// recognizer. Keywords are lower case substrings.
type Vocabulary struct {
	Zero             []string `yaml:"zero"`
	Spam             []string `yaml:"spam"`
	Liquidation      []string `yaml:"liquidation"`
	Margin           []string `yaml:"margin"`
	MarginSell       []string `yaml:"marginSell"`
	MarginBuy        []string `yaml:"marginBuy"`
	NFT              []string `yaml:"nft"`
	NFTSale          []string `yaml:"nftSale"`
	Staking          []string `yaml:"staking"`
	StakingPrincipal []string `yaml:"stakingPrincipal"`
	StakingReward    []string `yaml:"stakingReward"`
	Liquidity        []string `yaml:"liquidity"`
	LiquidityAdd     []string `yaml:"liquidityAdd"`
	LiquidityRemove  []string `yaml:"liquidityRemove"`
	DCA              []string `yaml:"dca"`
	Swap             []string `yaml:"swap"`
	Transfer         []string `yaml:"transfer"`
	Receive          []string `yaml:"receive"`
	Send             []string `yaml:"send"`
	Bridge           []string `yaml:"bridge"`
	Buy              []string `yaml:"buy"`
	Sell             []string `yaml:"sell"`
	SellNotes        []string `yaml:"sellNotes"`
	SelfTransfer     []string `yaml:"selfTransfer"`
}

// DefaultVocabulary returns a fresh copy of the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v := new(Vocabulary)
	if err := yaml.Unmarshal(defaultVocabulary, v); err != nil {
		panic(fmt.Sprintf("invalid embedded vocabulary: %v", err))
	}
	v.normalize()
	return v
}

// LoadVocabulary reads a YAML vocabulary from r. Keys absent from r keep their
// default keywords.
func LoadVocabulary(r io.Reader) (*Vocabulary, error) {
	v := DefaultVocabulary()
	if err := yaml.NewDecoder(r).Decode(v); err != nil && err != io.EOF {
		return nil, fmt.Errorf("cannot decode vocabulary: %w", err)
	}
	v.normalize()
	return v, nil
}

// ReadVocabularyFile loads a vocabulary file, see [LoadVocabulary].
func ReadVocabularyFile(filename string) (*Vocabulary, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open vocabulary %q: %w", filename, err)
	}
	defer f.Close()
	v, err := LoadVocabulary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return v, nil
}

// normalize lower cases every keyword and drops empty ones.
func (v *Vocabulary) normalize() {
	for _, list := range v.lists() {
		out := (*list)[:0]
		for _, k := range *list {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				out = append(out, k)
			}
		}
		*list = slices.Clip(out)
	}
}

func (v *Vocabulary) lists() []*[]string {
	return []*[]string{
		&v.Zero, &v.Spam, &v.Liquidation, &v.Margin, &v.MarginSell, &v.MarginBuy,
		&v.NFT, &v.NFTSale, &v.Staking, &v.StakingPrincipal, &v.StakingReward,
		&v.Liquidity, &v.LiquidityAdd, &v.LiquidityRemove, &v.DCA, &v.Swap,
		&v.Transfer, &v.Receive, &v.Send, &v.Bridge, &v.Buy, &v.Sell, &v.SellNotes,
		&v.SelfTransfer,
	}
}

// containsAny reports whether text contains one of the keywords.
func containsAny(text string, keywords []string) bool {
	return slices.ContainsFunc(keywords, func(k string) bool { return strings.Contains(text, k) })
}
