package content

import (
	"encoding/json"
	"fmt"
)

type BlockType string

const (
	BlockText    BlockType = "text"
	BlockList    BlockType = "list"
	BlockCallout BlockType = "callout"
	BlockImage   BlockType = "image"
)

// AllBlockTypes lists every variant. Adding a variant without extending it
// (and the renderers) fails the package tests.
var AllBlockTypes = []BlockType{BlockText, BlockList, BlockCallout, BlockImage}

type ListType string

const (
	ListBullet ListType = "bullet"
	ListNumber ListType = "number"
)

type CalloutType string

const (
	CalloutNote    CalloutType = "note"
	CalloutWarning CalloutType = "warning"
	CalloutTip     CalloutType = "tip"
)

// Block is a structured content unit inside a step. The set of
// implementations is closed to this package.
type Block interface {
	BlockID() string
	Type() BlockType
	sealed()
}

type TextBlock struct {
	ID      string
	Content string
}

type ListBlock struct {
	ID       string
	ListType ListType
	Items    []string
}

type CalloutBlock struct {
	ID          string
	CalloutType CalloutType
	Content     string
}

type ImageBlock struct {
	ID      string
	URL     string
	Caption string
}

func (b TextBlock) BlockID() string    { return b.ID }
func (b ListBlock) BlockID() string    { return b.ID }
func (b CalloutBlock) BlockID() string { return b.ID }
func (b ImageBlock) BlockID() string   { return b.ID }

func (TextBlock) Type() BlockType    { return BlockText }
func (ListBlock) Type() BlockType    { return BlockList }
func (CalloutBlock) Type() BlockType { return BlockCallout }
func (ImageBlock) Type() BlockType   { return BlockImage }

func (TextBlock) sealed()    {}
func (ListBlock) sealed()    {}
func (CalloutBlock) sealed() {}
func (ImageBlock) sealed()   {}

// Blocks is an ordered list of blocks stored in the flat wire form
// {id, type, content?, listType?, items?, calloutType?, url?, caption?}.
type Blocks []Block

type wireBlock struct {
	ID          string      `json:"id"`
	Type        BlockType   `json:"type"`
	Content     string      `json:"content,omitempty"`
	ListType    ListType    `json:"listType,omitempty"`
	Items       []string    `json:"items,omitempty"`
	CalloutType CalloutType `json:"calloutType,omitempty"`
	URL         string      `json:"url,omitempty"`
	Caption     string      `json:"caption,omitempty"`
}

func (bs Blocks) MarshalJSON() ([]byte, error) {
	wire := make([]wireBlock, 0, len(bs))
	for _, block := range bs {
		w, err := toWire(block)
		if err != nil {
			return nil, err
		}
		wire = append(wire, w)
	}
	return json.Marshal(wire)
}

func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var wire []wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := make(Blocks, 0, len(wire))
	for _, w := range wire {
		block, err := fromWire(w)
		if err != nil {
			return err
		}
		out = append(out, block)
	}
	*bs = out
	return nil
}

func toWire(block Block) (wireBlock, error) {
	switch b := block.(type) {
	case TextBlock:
		return wireBlock{ID: b.ID, Type: BlockText, Content: b.Content}, nil
	case ListBlock:
		return wireBlock{ID: b.ID, Type: BlockList, ListType: b.ListType, Items: b.Items}, nil
	case CalloutBlock:
		return wireBlock{ID: b.ID, Type: BlockCallout, CalloutType: b.CalloutType, Content: b.Content}, nil
	case ImageBlock:
		return wireBlock{ID: b.ID, Type: BlockImage, URL: b.URL, Caption: b.Caption}, nil
	default:
		return wireBlock{}, fmt.Errorf("content: unhandled block %T", block)
	}
}

func fromWire(w wireBlock) (Block, error) {
	switch w.Type {
	case BlockText:
		return TextBlock{ID: w.ID, Content: w.Content}, nil
	case BlockList:
		listType := w.ListType
		if listType == "" {
			listType = ListBullet
		}
		return ListBlock{ID: w.ID, ListType: listType, Items: w.Items}, nil
	case BlockCallout:
		calloutType := w.CalloutType
		if calloutType == "" {
			calloutType = CalloutNote
		}
		return CalloutBlock{ID: w.ID, CalloutType: calloutType, Content: w.Content}, nil
	case BlockImage:
		return ImageBlock{ID: w.ID, URL: w.URL, Caption: w.Caption}, nil
	default:
		return nil, fmt.Errorf("content: unknown block type %q", w.Type)
	}
}
