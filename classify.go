package cryptotax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ClassifyInput is the part of a transaction the classifier looks at.
type ClassifyInput struct {
	Type                string
	Notes               string
	ValueUSD            decimal.Decimal
	AssetSymbol         string
	IncomingAssetSymbol string
}

// Input returns the classifier input of a transaction. The value is
// [Transaction.Value] so that a record priced only per unit is not mistaken for
// a zero-value transaction.
func (tx Transaction) Input() ClassifyInput {
	return ClassifyInput{
		Type:                tx.Type,
		Notes:               tx.Notes,
		ValueUSD:            tx.Value(),
		AssetSymbol:         tx.AssetSymbol,
		IncomingAssetSymbol: tx.IncomingAssetSymbol,
	}
}

// Classification is the result of classifying one transaction.
type Classification struct {
	Category Category `json:"category"`
	// Identified is false when no rule matched and the fallback was used. Such
	// transactions need a manual review.
	Identified bool   `json:"identified"`
	FinalType  string `json:"finalType"`
	Subtype    string `json:"subtype,omitempty"`
	// Rule is the name of the rule that matched.
	Rule string `json:"rule"`
}

// Classifier assigns a [Category] to transactions using an ordered cascade of
// keyword rules. The first matching rule wins.
//
// A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	vocab *Vocabulary
}

// NewClassifier returns a classifier using v, or the default vocabulary when v is nil.
func NewClassifier(v *Vocabulary) *Classifier {
	if v == nil {
		v = DefaultVocabulary()
	}
	return &Classifier{vocab: v}
}

// classifyText is the lower cased text a rule matches keywords against.
type classifyText struct {
	in    ClassifyInput
	typ   string // type only
	notes string // notes only
	all   string // type and notes
}

type rule struct {
	name  string
	match func(t classifyText, v *Vocabulary) (Classification, bool)
}

// rules is the cascade, most specific first. The order is part of the contract.
//
// Buy and sell keywords are only looked up in the type: import pipelines write
// "Purchased:" markers in the notes of sell records.
var rules = []rule{
	{"zero", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !t.in.ValueUSD.IsZero() && !containsAny(t.typ, v.Zero) {
			return Classification{}, false
		}
		return Classification{Category: CategoryZero, FinalType: TypeZero}, true
	}},
	{"spam", func(t classifyText, v *Vocabulary) (Classification, bool) {
		asset := strings.ToLower(t.in.AssetSymbol)
		if !containsAny(t.all, v.Spam) && !containsAny(asset, v.Spam) {
			return Classification{}, false
		}
		return Classification{Category: CategorySpam, FinalType: TypeSpam}, true
	}},
	{"liquidation", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.Liquidation) {
			return Classification{}, false
		}
		return Classification{Category: CategoryLiquidation, FinalType: TypeLiquidation}, true
	}},
	{"margin", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.Margin) {
			return Classification{}, false
		}
		c := Classification{Category: CategoryMargin, FinalType: TypeMarginSell}
		switch {
		case containsAny(t.all, v.MarginSell):
		case containsAny(t.all, v.MarginBuy), t.in.ValueUSD.IsNegative():
			c.FinalType = TypeMarginBuy
		}
		return c, true
	}},
	{"nft", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.NFT) {
			return Classification{}, false
		}
		c := Classification{Category: CategoryNFT, FinalType: TypeNFTPurchase}
		if containsAny(t.all, v.NFTSale) {
			c.FinalType = TypeNFTSale
		}
		return c, true
	}},
	{"staking", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.Staking) {
			return Classification{}, false
		}
		c := Classification{Category: CategoryStaking, FinalType: TypeStaking, Subtype: SubtypeReward}
		if containsAny(t.all, v.StakingPrincipal) && !containsAny(t.all, v.StakingReward) {
			c.Subtype = SubtypePrincipal
		}
		return c, true
	}},
	{"liquidity", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.Liquidity) {
			return Classification{}, false
		}
		c := Classification{Category: CategoryLiquidity, FinalType: TypeRemoveLiquidity}
		if containsAny(t.all, v.LiquidityAdd) && !containsAny(t.all, v.LiquidityRemove) {
			c.FinalType = TypeAddLiquidity
		}
		return c, true
	}},
	{"dca", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.DCA) {
			return Classification{}, false
		}
		return Classification{Category: CategoryDCA, FinalType: TypeDCA}, true
	}},
	{"swap", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.Swap) && strings.TrimSpace(t.in.IncomingAssetSymbol) == "" {
			return Classification{}, false
		}
		return Classification{Category: CategorySwap, FinalType: TypeSwap}, true
	}},
	{"transfer", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.all, v.Transfer) {
			return Classification{}, false
		}
		c := Classification{Category: CategoryTransfer, FinalType: TypeSend}
		send := containsAny(t.all, v.Send)
		if containsAny(t.all, v.Receive) || (t.in.ValueUSD.IsPositive() && !send) {
			c.FinalType = TypeReceive
		}
		if containsAny(t.all, v.Bridge) {
			c.Subtype = SubtypeBridge
		}
		return c, true
	}},
	{"buy", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.typ, v.Buy) && !(t.in.ValueUSD.IsNegative() && !containsAny(t.typ, v.Sell)) {
			return Classification{}, false
		}
		return Classification{Category: CategoryBuy, FinalType: TypeBuy}, true
	}},
	{"sell", func(t classifyText, v *Vocabulary) (Classification, bool) {
		if !containsAny(t.typ, v.Sell) && !containsAny(t.notes, v.SellNotes) {
			return Classification{}, false
		}
		return Classification{Category: CategorySell, FinalType: TypeSell}, true
	}},
}

// fallbackRule is the name reported when no rule matched.
const fallbackRule = "fallback"

// Rules returns the rule names in precedence order, the fallback last.
func Rules() []string {
	names := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		names = append(names, r.name)
	}
	return append(names, fallbackRule)
}

// Classify runs the rule cascade on in. It has no side effects.
//
// When no rule matches, the transaction is conservatively classified as a buy
// with Identified set to false and FinalType left to the original type.
func (c *Classifier) Classify(in ClassifyInput) Classification {
	t := classifyText{
		in:    in,
		typ:   strings.ToLower(in.Type),
		notes: strings.ToLower(in.Notes),
	}
	t.all = t.typ + " " + t.notes
	for _, r := range rules {
		if res, ok := r.match(t, c.vocab); ok {
			res.Identified = true
			res.Rule = r.name
			return res
		}
	}
	return Classification{Category: CategoryBuy, FinalType: in.Type, Rule: fallbackRule}
}

// ClassifyTransaction classifies a transaction, see [Classifier.Classify].
func (c *Classifier) ClassifyTransaction(tx Transaction) Classification {
	return c.Classify(tx.Input())
}
