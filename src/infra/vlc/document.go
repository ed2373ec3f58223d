package vlc

import (
	"encoding/xml"

	"maestro/src/player"
)

// statusDocument is the shape of /requests/status.xml.
type statusDocument struct {
	XMLName     xml.Name `xml:"root"`
	State       string   `xml:"state"`
	Volume      int      `xml:"volume"`
	Random      bool     `xml:"random"`
	Loop        bool     `xml:"loop"`
	Repeat      bool     `xml:"repeat"`
	Information struct {
		Categories []struct {
			Name  string `xml:"name,attr"`
			Infos []struct {
				Name  string `xml:"name,attr"`
				Value string `xml:",chardata"`
			} `xml:"info"`
		} `xml:"category"`
	} `xml:"information"`
	CurrentPlID string `xml:"currentplid"`
}

// meta returns a value from the document's "meta" information category.
func (d *statusDocument) meta(name string) string {
	for _, cat := range d.Information.Categories {
		if cat.Name != "meta" {
			continue
		}
		for _, info := range cat.Infos {
			if info.Name == name {
				return info.Value
			}
		}
	}
	return ""
}

// fullVolume is the document value that corresponds to 100% volume; VLC
// reports values above it for amplified output.
const fullVolume = 256

// playbackState maps the document's state element to the domain enum.
func (d *statusDocument) playbackState() player.PlaybackState {
	switch d.State {
	case "playing":
		return player.StatePlaying
	case "paused":
		return player.StatePaused
	default:
		return player.StateStopped
	}
}

// repeatMode derives the repeat mode from the loop/repeat flags.
func (d *statusDocument) repeatMode() player.RepeatMode {
	switch {
	case d.Repeat:
		return player.RepeatTrack
	case d.Loop:
		return player.RepeatAll
	default:
		return player.RepeatNone
	}
}

// playlistNode is one container of /requests/playlist.xml. Containers
// nest and may interleave playable leaves with child containers, so
// children are decoded positionally to keep document order.
type playlistNode struct {
	ID       string
	Name     string
	children []playlistChild
}

// playlistChild is one ordered child of a container; exactly one field
// is set.
type playlistChild struct {
	node *playlistNode
	leaf *playlistLeaf
}

type playlistLeaf struct {
	ID     string `xml:"id,attr"`
	Name   string `xml:"name,attr"`
	Artist string `xml:"artist,attr"`
}

// UnmarshalXML decodes a container's children in document order. The
// default decoder would split leaves and nested containers into
// separate slices and lose their interleaving.
func (n *playlistNode) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			n.ID = attr.Value
		case "name":
			n.Name = attr.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "node":
				var child playlistNode
				if err := d.DecodeElement(&child, &t); err != nil {
					return err
				}
				n.children = append(n.children, playlistChild{node: &child})
			case "leaf":
				var leaf playlistLeaf
				if err := d.DecodeElement(&leaf, &t); err != nil {
					return err
				}
				n.children = append(n.children, playlistChild{leaf: &leaf})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// playlistDocument is the root of /requests/playlist.xml.
type playlistDocument struct {
	XMLName xml.Name       `xml:"node"`
	ID      string         `xml:"id,attr"`
	Name    string         `xml:"name,attr"`
	Nodes   []playlistNode `xml:"node"`
}

// containers returns the top-level containers of the document. Ids come
// verbatim from the id attributes.
func (d *playlistDocument) containers() []playlistNode {
	return d.Nodes
}

// flatten collects the node's leaves in document order, descending into
// nested containers where they appear.
func (n *playlistNode) flatten() []playlistLeaf {
	var leaves []playlistLeaf
	for _, c := range n.children {
		switch {
		case c.leaf != nil:
			leaves = append(leaves, *c.leaf)
		case c.node != nil:
			leaves = append(leaves, c.node.flatten()...)
		}
	}
	return leaves
}
