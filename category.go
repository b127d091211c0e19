package cryptotax

// Category is the semantic class assigned to a transaction by the [Classifier].
type Category string

const (
	CategoryZero        Category = "zero"
	CategorySpam        Category = "spam"
	CategoryLiquidation Category = "liquidation"
	CategoryMargin      Category = "margin"
	CategoryNFT         Category = "nft"
	CategoryStaking     Category = "staking"
	CategoryLiquidity   Category = "liquidity"
	CategoryDCA         Category = "dca"
	CategorySwap        Category = "swap"
	CategoryTransfer    Category = "transfer"
	CategoryBuy         Category = "buy"
	CategorySell        Category = "sell"
)

// Categories lists every category in the order the classifier tries them.
var Categories = []Category{
	CategoryZero, CategorySpam, CategoryLiquidation, CategoryMargin, CategoryNFT, CategoryStaking,
	CategoryLiquidity, CategoryDCA, CategorySwap, CategoryTransfer, CategoryBuy, CategorySell,
}

// Final types produced by the classifier.
const (
	TypeZero            = "Zero Transaction"
	TypeSpam            = "Spam"
	TypeLiquidation     = "Liquidation"
	TypeMarginBuy       = "Margin Buy"
	TypeMarginSell      = "Margin Sell"
	TypeNFTSale         = "NFT Sale"
	TypeNFTPurchase     = "NFT Purchase"
	TypeStaking         = "Staking"
	TypeAddLiquidity    = "Add Liquidity"
	TypeRemoveLiquidity = "Remove Liquidity"
	TypeDCA             = "DCA"
	TypeSwap            = "Swap"
	TypeReceive         = "Receive"
	TypeSend            = "Send"
	TypeBuy             = "Buy"
	TypeSell            = "Sell"
)

// Subtypes produced by the classifier.
const (
	SubtypeReward    = "Reward"
	SubtypePrincipal = "Principal"
	SubtypeBridge    = "Bridge"
)

// IsAcquisition reports whether a classified transaction opens a lot for the
// asset it names. Swaps open a lot for their incoming asset, see [Classification.IsDisposal].
func (c Classification) IsAcquisition() bool {
	switch c.Category {
	case CategoryBuy, CategoryDCA:
		return true
	case CategoryMargin:
		return c.FinalType == TypeMarginBuy
	case CategoryNFT:
		return c.FinalType == TypeNFTPurchase
	case CategoryTransfer:
		return c.FinalType == TypeReceive && c.Subtype == SubtypeBridge
	}
	return false
}

// IsDisposal reports whether a classified transaction realizes a gain or loss
// on the asset it names.
func (c Classification) IsDisposal() bool {
	switch c.Category {
	case CategorySell, CategorySwap, CategoryLiquidation:
		return true
	case CategoryMargin:
		return c.FinalType == TypeMarginSell
	case CategoryNFT:
		return c.FinalType == TypeNFTSale
	case CategoryTransfer:
		return c.FinalType == TypeSend && c.Subtype == SubtypeBridge
	}
	return false
}

// isPurchase reports whether the acquisition counts as a repurchase for the
// wash-sale rule. Bridged-in assets were already owned.
func (c Classification) isPurchase() bool {
	return c.IsAcquisition() && c.Category != CategoryTransfer
}
