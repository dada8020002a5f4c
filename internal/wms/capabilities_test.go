package wms

import (
	"testing"
)

const sampleCapabilities = `<?xml version="1.0" encoding="UTF-8"?>
<WMS_Capabilities xmlns="http://www.opengis.net/wms" xmlns:xlink="http://www.w3.org/1999/xlink" version="1.3.0" updateSequence="2021-06-03T09:00:00Z">
  <Service>
    <Name>WMS</Name>
    <Title>Weather service</Title>
    <Abstract>Forecast layers</Abstract>
    <OnlineResource xlink:href="https://geo.example.org"/>
  </Service>
  <Capability>
    <Request>
      <GetCapabilities>
        <Format>text/xml</Format>
        <DCPType>
          <HTTP>
            <Get>
              <OnlineResource xlink:type="simple" xlink:href="https://geo.example.org/wms?"/>
            </Get>
          </HTTP>
        </DCPType>
      </GetCapabilities>
      <GetMap>
        <Format>image/png</Format>
        <Format>image/jpeg</Format>
        <DCPType>
          <HTTP>
            <Get>
              <OnlineResource xlink:type="simple" xlink:href="https://geo.example.org/wms?"/>
            </Get>
          </HTTP>
        </DCPType>
      </GetMap>
    </Request>
    <Exception>
      <Format>XML</Format>
    </Exception>
    <Layer>
      <Title>Forecasts</Title>
      <CRS>EPSG:4326</CRS>
      <Layer queryable="1" opaque="0">
        <Name>Pollen</Name>
        <Title>Pollen forecast</Title>
        <BoundingBox CRS="EPSG:4326" minx="-10.5" miny="35.25" maxx="30.5" maxy="70.75"/>
        <Dimension name="time" units="ISO8601" default="current">2021-06-01T00:00:00Z/2021-06-03T00:00:00Z/P1D</Dimension>
        <Style>
          <Name>default</Name>
          <Title>Default style</Title>
        </Style>
      </Layer>
    </Layer>
  </Capability>
</WMS_Capabilities>`

func TestParseCapabilities(t *testing.T) {
	capabilities, err := ParseCapabilities([]byte(sampleCapabilities))
	if err != nil {
		t.Fatalf("ParseCapabilities() error = %v", err)
	}

	if capabilities.Version != "1.3.0" {
		t.Errorf("Version = %q, want 1.3.0", capabilities.Version)
	}
	if capabilities.Service.Title != "Weather service" {
		t.Errorf("Service.Title = %q", capabilities.Service.Title)
	}

	getMap := capabilities.Capability.Request.GetMap
	if len(getMap.Format) != 2 {
		t.Errorf("GetMap formats = %v, want 2 entries", getMap.Format)
	}
	if len(getMap.DCPType) != 1 {
		t.Fatalf("GetMap DCPType entries = %d, want 1", len(getMap.DCPType))
	}
	if href := getMap.DCPType[0].HTTP.Get.OnlineResource.Href; href != "https://geo.example.org/wms?" {
		t.Errorf("GetMap href = %q", href)
	}

	root := capabilities.Capability.Layer
	if root.Title != "Forecasts" {
		t.Errorf("root layer title = %q", root.Title)
	}
	if len(root.Layer) != 1 {
		t.Fatalf("root has %d sublayers, want 1", len(root.Layer))
	}

	pollen := root.Layer[0]
	if pollen.Name != "Pollen" || pollen.Queryable != "1" {
		t.Errorf("sublayer = %+v", pollen)
	}
	if len(pollen.Dimension) != 1 {
		t.Fatalf("sublayer has %d dimensions, want 1", len(pollen.Dimension))
	}

	dimension := pollen.Dimension[0]
	if dimension.Name != "time" || dimension.Units != "ISO8601" || dimension.Default != "current" {
		t.Errorf("dimension attributes = %+v", dimension)
	}
	if dimension.Value != "2021-06-01T00:00:00Z/2021-06-03T00:00:00Z/P1D" {
		t.Errorf("dimension value = %q", dimension.Value)
	}

	if len(pollen.BoundingBox) != 1 || pollen.BoundingBox[0].Minx != "-10.5" {
		t.Errorf("bounding boxes = %+v", pollen.BoundingBox)
	}
}

func TestParseCapabilitiesMalformed(t *testing.T) {
	if _, err := ParseCapabilities([]byte("<WMS_Capabilities>")); err == nil {
		t.Fatal("ParseCapabilities() expected an error for truncated XML")
	}
}
