package data

import "strings"

// Encoding identifies the pixel encoding of a sprite resource.
type Encoding uint8

const (
	EncodingUnknown Encoding = iota
	EncodingSolid
	EncodingTransparent
	EncodingOverlay
	EncodingMask
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingSolid:
		return "solid"
	case EncodingTransparent:
		return "transparent"
	case EncodingOverlay:
		return "overlay"
	case EncodingMask:
		return "mask"
	default:
		return "unknown"
	}
}

// Kind is a logical asset kind. Each kind occupies a contiguous index
// range in the archive starting at its descriptor's FirstIndex.
type Kind uint8

const (
	KindNone Kind = iota
	KindArtLandscape
	KindAnimation
	KindSerfShadow
	KindDottedLines
	KindArtFlag
	KindArtBox
	KindCreditsBg
	KindLogo
	KindSymbol
	KindMapMaskUp
	KindMapMaskDown
	KindPathMask
	KindMapGround
	KindPathGround
	KindGameObject
	KindFrameTop
	KindMapBorder
	KindMapWaves
	KindFramePopup
	KindIndicator
	KindFont
	KindFontShadow
	KindIcon
	KindMapObject
	KindMapShadow
	KindPanelButton
	KindFrameBottom
	KindSerfTorso
	KindSerfHead
	KindFrameSplit
	KindSound
	KindMusic
	KindCursor
	KindPalette

	kindCount
)

// Descriptor is one row of the resource catalog: where a kind's resources
// start in the index table, which palette resource colors them, and how
// their pixels are encoded. PaletteIndex 0 means the kind is not a
// palette-colored sprite (sound, music, animation table, palettes).
type Descriptor struct {
	FirstIndex   uint32
	PaletteIndex uint32
	Encoding     Encoding
}

// Distinguished archive indices marking the non-sprite regions.
const (
	animationTableIndex = 2    // big-endian length-prefixed timing table
	serfArmsIndex       = 1850 // transparent arm overlays for serf torsos
	sfxBaseIndex        = 3900 // sound effects (index 0 is undefined)
	musicGameIndex      = 3990 // in-game XMI music
	musicEndingIndex    = 3992 // ending XMI music
)

// Flag animation frames inside the map-object kind come as pairs of four
// per-frame sprites.
const (
	flagFrameFirst = 128
	flagFrameLast  = 143
	flagFrameCount = 4
)

// Serf torsos are decoded twice with two palette color offsets so the
// renderer can substitute the player color where the variants differ.
const (
	torsoColorOffsetA = 64
	torsoColorOffsetB = 72
)

// shadowAlpha is the fixed overlay value for shadow sprites.
const shadowAlpha = 0x80

// catalog is the static resource table. Read-only; the values are format
// constants of the original archive layout.
var catalog = [kindCount]Descriptor{
	KindNone:         {0, 0, EncodingUnknown},
	KindArtLandscape: {1, 3997, EncodingSolid},
	KindAnimation:    {animationTableIndex, 0, EncodingUnknown},
	KindSerfShadow:   {4, 3, EncodingOverlay},
	KindDottedLines:  {5, 3, EncodingSolid},
	KindArtFlag:      {15, 3997, EncodingSolid},
	KindArtBox:       {25, 3, EncodingSolid},
	KindCreditsBg:    {40, 3998, EncodingSolid},
	KindLogo:         {41, 3998, EncodingSolid},
	KindSymbol:       {42, 3, EncodingSolid},
	KindMapMaskUp:    {60, 3, EncodingMask},
	KindMapMaskDown:  {141, 3, EncodingMask},
	KindPathMask:     {230, 3, EncodingMask},
	KindMapGround:    {260, 3, EncodingSolid},
	KindPathGround:   {300, 3, EncodingSolid},
	KindGameObject:   {321, 3, EncodingTransparent},
	KindFrameTop:     {600, 3, EncodingSolid},
	KindMapBorder:    {610, 3, EncodingTransparent},
	KindMapWaves:     {630, 3, EncodingTransparent},
	KindFramePopup:   {660, 3, EncodingSolid},
	KindIndicator:    {670, 3, EncodingSolid},
	KindFont:         {750, 3, EncodingTransparent},
	KindFontShadow:   {810, 3, EncodingTransparent},
	KindIcon:         {870, 3, EncodingSolid},
	KindMapObject:    {1250, 3, EncodingTransparent},
	KindMapShadow:    {1500, 3, EncodingOverlay},
	KindPanelButton:  {1750, 3, EncodingSolid},
	KindFrameBottom:  {1780, 3, EncodingSolid},
	KindSerfTorso:    {2500, 3, EncodingTransparent},
	KindSerfHead:     {3150, 3, EncodingTransparent},
	KindFrameSplit:   {3880, 3, EncodingSolid},
	KindSound:        {sfxBaseIndex, 0, EncodingUnknown},
	KindMusic:        {musicGameIndex, 0, EncodingUnknown},
	KindCursor:       {3999, 3, EncodingTransparent},
	KindPalette:      {3, 0, EncodingUnknown},
}

var kindNames = [kindCount]string{
	KindNone:         "none",
	KindArtLandscape: "art-landscape",
	KindAnimation:    "animation",
	KindSerfShadow:   "serf-shadow",
	KindDottedLines:  "dotted-lines",
	KindArtFlag:      "art-flag",
	KindArtBox:       "art-box",
	KindCreditsBg:    "credits-bg",
	KindLogo:         "logo",
	KindSymbol:       "symbol",
	KindMapMaskUp:    "map-mask-up",
	KindMapMaskDown:  "map-mask-down",
	KindPathMask:     "path-mask",
	KindMapGround:    "map-ground",
	KindPathGround:   "path-ground",
	KindGameObject:   "game-object",
	KindFrameTop:     "frame-top",
	KindMapBorder:    "map-border",
	KindMapWaves:     "map-waves",
	KindFramePopup:   "frame-popup",
	KindIndicator:    "indicator",
	KindFont:         "font",
	KindFontShadow:   "font-shadow",
	KindIcon:         "icon",
	KindMapObject:    "map-object",
	KindMapShadow:    "map-shadow",
	KindPanelButton:  "panel-button",
	KindFrameBottom:  "frame-bottom",
	KindSerfTorso:    "serf-torso",
	KindSerfHead:     "serf-head",
	KindFrameSplit:   "frame-split",
	KindSound:        "sound",
	KindMusic:        "music",
	KindCursor:       "cursor",
	KindPalette:      "palette",
}

// String returns the kind name.
func (k Kind) String() string {
	if k >= kindCount {
		return "invalid"
	}
	return kindNames[k]
}

// Describe returns the catalog row for k.
func (k Kind) Describe() Descriptor {
	if k >= kindCount {
		return Descriptor{}
	}
	return catalog[k]
}

// Kinds returns all defined kinds in catalog order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a kind by its name, as used on the command line.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindNone, false
}
