package wms

import (
	"encoding/xml"
	"fmt"
)

type Capabilities struct {
	XMLName        xml.Name   `xml:"WMS_Capabilities"`
	Version        string     `xml:"version,attr"`
	UpdateSequence string     `xml:"updateSequence,attr"`
	Service        Service    `xml:"Service"`
	Capability     Capability `xml:"Capability"`
}

type Service struct {
	Name           string         `xml:"Name"`
	Title          string         `xml:"Title"`
	Abstract       string         `xml:"Abstract"`
	OnlineResource OnlineResource `xml:"OnlineResource"`
}

type Capability struct {
	Request   Request `xml:"Request"`
	Exception struct {
		Format []string `xml:"Format"`
	} `xml:"Exception"`
	Layer Layer `xml:"Layer"`
}

type Request struct {
	GetCapabilities Operation `xml:"GetCapabilities"`
	GetMap          Operation `xml:"GetMap"`
	GetFeatureInfo  Operation `xml:"GetFeatureInfo"`
}

type Operation struct {
	Format  []string  `xml:"Format"`
	DCPType []DCPType `xml:"DCPType"`
}

type DCPType struct {
	HTTP struct {
		Get  HTTPMethod `xml:"Get"`
		Post HTTPMethod `xml:"Post"`
	} `xml:"HTTP"`
}

type HTTPMethod struct {
	OnlineResource OnlineResource `xml:"OnlineResource"`
}

type OnlineResource struct {
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

type Layer struct {
	Queryable string   `xml:"queryable,attr"`
	Opaque    string   `xml:"opaque,attr"`
	Cascaded  string   `xml:"cascaded,attr"`
	Name      string   `xml:"Name"`
	Title     string   `xml:"Title"`
	Abstract  string   `xml:"Abstract"`
	CRS       []string `xml:"CRS"`

	EXGeographicBoundingBox EXGeographicBoundingBox `xml:"EX_GeographicBoundingBox"`
	BoundingBox             []BoundingBox           `xml:"BoundingBox"`
	Dimension               []Dimension             `xml:"Dimension"`
	Style                   []Style                 `xml:"Style"`

	MinScaleDenominator string `xml:"MinScaleDenominator"`
	MaxScaleDenominator string `xml:"MaxScaleDenominator"`

	Layer []Layer `xml:"Layer"`
}

type EXGeographicBoundingBox struct {
	WestBoundLongitude string `xml:"westBoundLongitude"`
	EastBoundLongitude string `xml:"eastBoundLongitude"`
	SouthBoundLatitude string `xml:"southBoundLatitude"`
	NorthBoundLatitude string `xml:"northBoundLatitude"`
}

type BoundingBox struct {
	CRS  string `xml:"CRS,attr"`
	Minx string `xml:"minx,attr"`
	Miny string `xml:"miny,attr"`
	Maxx string `xml:"maxx,attr"`
	Maxy string `xml:"maxy,attr"`
}

// Dimension declares an axis (e.g. time) along which a layer varies. The
// element's character data holds the allowed values in the compact
// interval notation resolved by the timedim package.
type Dimension struct {
	Name    string `xml:"name,attr"`
	Units   string `xml:"units,attr"`
	Default string `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

type Style struct {
	Name      string `xml:"Name"`
	Title     string `xml:"Title"`
	Abstract  string `xml:"Abstract"`
	LegendURL struct {
		Width          string         `xml:"width,attr"`
		Height         string         `xml:"height,attr"`
		Format         string         `xml:"Format"`
		OnlineResource OnlineResource `xml:"OnlineResource"`
	} `xml:"LegendURL"`
}

// ParseCapabilities unmarshals a raw WMS capabilities document. The document
// is not validated against the WMS schema; elements that are missing simply
// stay at their zero values.
func ParseCapabilities(doc []byte) (*Capabilities, error) {
	capabilities := &Capabilities{}
	if err := xml.Unmarshal(doc, capabilities); err != nil {
		return nil, fmt.Errorf("parse capabilities document: %w", err)
	}

	return capabilities, nil
}
