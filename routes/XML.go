package routes

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type xmlRoutes struct {
	XMLName  xml.Name     `xml:"routes"`
	VTypes   []xmlVType   `xml:"vType"`
	Routes   []xmlRoute   `xml:"route"`
	Vehicles []xmlVehicle `xml:"vehicle"`
}

type xmlVType struct {
	ID       string  `xml:"id,attr"`
	Accel    float64 `xml:"accel,attr"`
	Decel    float64 `xml:"decel,attr"`
	Sigma    float64 `xml:"sigma,attr"`
	Length   float64 `xml:"length,attr"`
	MinGap   float64 `xml:"minGap,attr"`
	MaxSpeed float64 `xml:"maxSpeed,attr"`
	GUIShape string  `xml:"guiShape,attr,omitempty"`
}

type xmlRoute struct {
	ID    string `xml:"id,attr"`
	Edges string `xml:"edges,attr"`
}

type xmlVehicle struct {
	ID     string `xml:"id,attr"`
	Type   string `xml:"type,attr"`
	Route  string `xml:"route,attr"`
	Depart int    `xml:"depart,attr"`
	Color  string `xml:"color,attr,omitempty"`
}

// WriteXML writes the Demand as a SUMO route document
func (d Demand) WriteXML(w io.Writer) error {
	doc := xmlRoutes{
		VTypes:   make([]xmlVType, len(d.VTypes)),
		Routes:   make([]xmlRoute, len(d.Routes)),
		Vehicles: make([]xmlVehicle, len(d.Vehicles)),
	}
	for i, v := range d.VTypes {
		doc.VTypes[i] = xmlVType(v)
	}
	for i, r := range d.Routes {
		doc.Routes[i] = xmlRoute{ID: r.ID, Edges: strings.Join(r.Edges, " ")}
	}
	for i, v := range d.Vehicles {
		doc.Vehicles[i] = xmlVehicle(v)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("writexml: could not encode routes: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writexml: %w", err)
	}
	return nil
}

// WriteFile writes the Demand as a SUMO route file at path, creating
// any missing parent directories.
func (d Demand) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writefile: could not create route directory: %w",
			err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writefile: could not create route file: %w", err)
	}

	if err := d.WriteXML(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
