package serialize

import "encoding/xml"

// CelXML is one <Cel img="" x="" y="" pal=""/> element.
type CelXML struct {
	Img int `xml:"img,attr"`
	X   int `xml:"x,attr"`
	Y   int `xml:"y,attr"`
	Pal int `xml:"pal,attr"`
}

// FrameXML is one <Frame> element of frames.xml, an ordered list of Cels.
type FrameXML struct {
	Cels []CelXML `xml:"Cel"`
}

// FramesDoc is the root <AnimData><Frames>...</Frames></AnimData> document.
type FramesDoc struct {
	XMLName xml.Name   `xml:"AnimData"`
	Frames  []FrameXML `xml:"Frames>Frame"`
}

// AnimFrameXML is one <Frame id="" duration=""/> element of animations.xml.
type AnimFrameXML struct {
	ID       int `xml:"id,attr"`
	Duration int `xml:"duration,attr"`
}

// AnimXML is one <Anim> element, an ordered list of (frame, duration) pairs.
type AnimXML struct {
	Frames []AnimFrameXML `xml:"Frame"`
}

// AnimationsDoc is the root <AnimData><Anims>...</Anims></AnimData> document.
type AnimationsDoc struct {
	XMLName xml.Name  `xml:"AnimData"`
	Anims   []AnimXML `xml:"Anims>Anim"`
}
