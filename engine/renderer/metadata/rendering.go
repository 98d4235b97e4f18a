package metadata

/** @brief Groups scene items by the pipeline state they are drawn with. */
type RenderLayer uint8

const (
	RenderLayerOpaque RenderLayer = iota
	RenderLayerSky
	RenderLayerTransparent
	/** @brief Overlay copy of the picked item. */
	RenderLayerHighlight
	/** @brief Shadow map preview quad. */
	RenderLayerDebug
	RenderLayerCount
)

func (l RenderLayer) String() string {
	switch l {
	case RenderLayerOpaque:
		return "opaque"
	case RenderLayerSky:
		return "sky"
	case RenderLayerTransparent:
		return "transparent"
	case RenderLayerHighlight:
		return "highlight"
	case RenderLayerDebug:
		return "debug"
	}
	return "unknown"
}
