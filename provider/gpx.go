package provider

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"
)

// GPX represents the root GPX document structure
type GPX struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   Track    `xml:"trk"`
	Routes  []Route  `xml:"rte"`
}

// Track represents a GPX track
type Track struct {
	Name         string       `xml:"name"`
	TrackSegment TrackSegment `xml:"trkseg"`
}

// TrackSegment represents a segment of a GPX track
type TrackSegment struct {
	TrackPoints []TrackPoint `xml:"trkpt"`
}

// TrackPoint represents a point in a GPX track
type TrackPoint struct {
	Lat       float64   `xml:"lat,attr"`
	Lon       float64   `xml:"lon,attr"`
	Elevation float64   `xml:"ele,omitempty"`
	Time      time.Time `xml:"time"`
}

// Route represents a GPX route
type Route struct {
	Name        string       `xml:"name"`
	RoutePoints []RoutePoint `xml:"rtept"`
}

// RoutePoint represents a single point in a GPX route. Name labels the
// street or landmark reached at this point.
type RoutePoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Name string  `xml:"name,omitempty"`
	Desc string  `xml:"desc,omitempty"`
}

func decodeGPX(r io.Reader) (*GPX, error) {
	var gpx GPX
	if err := xml.NewDecoder(r).Decode(&gpx); err != nil {
		return nil, err
	}
	return &gpx, nil
}

func openGPX(filename string) (*GPX, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open gpx file %s: %w", filename, err)
	}
	defer file.Close()

	gpx, err := decodeGPX(file)
	if err != nil {
		return nil, fmt.Errorf("parse gpx file %s: %w", filename, err)
	}
	return gpx, nil
}

// ReadTrackPoints reads a GPX file and returns its track points, falling
// back to the first route when the file carries no track.
func ReadTrackPoints(filename string) ([]TrackPoint, error) {
	gpx, err := openGPX(filename)
	if err != nil {
		return nil, err
	}

	points := gpx.Track.TrackSegment.TrackPoints
	if len(points) == 0 && len(gpx.Routes) > 0 {
		for _, rp := range gpx.Routes[0].RoutePoints {
			points = append(points, TrackPoint{Lat: rp.Lat, Lon: rp.Lon})
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrEmptyGPX)
	}
	return points, nil
}

// ReadRoutePoints reads the first route of a GPX file, falling back to the
// track when the file carries no route.
func ReadRoutePoints(filename string) (string, []RoutePoint, error) {
	gpx, err := openGPX(filename)
	if err != nil {
		return "", nil, err
	}

	if len(gpx.Routes) > 0 && len(gpx.Routes[0].RoutePoints) > 0 {
		return gpx.Routes[0].Name, gpx.Routes[0].RoutePoints, nil
	}

	var points []RoutePoint
	for _, tp := range gpx.Track.TrackSegment.TrackPoints {
		points = append(points, RoutePoint{Lat: tp.Lat, Lon: tp.Lon})
	}
	if len(points) == 0 {
		return "", nil, fmt.Errorf("%s: %w", filename, ErrEmptyGPX)
	}
	return gpx.Track.Name, points, nil
}

// GPXWriter handles writing GPS data to a GPX file
type GPXWriter struct {
	filename string
	gpx      *GPX
	file     *os.File
}

// NewGPXWriter creates a new GPX writer
func NewGPXWriter(filename, trackName string) (*GPXWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create gpx file %s: %w", filename, err)
	}

	gpx := &GPX{
		Version: "1.1",
		Creator: "termgps",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Track: Track{
			Name: trackName,
			TrackSegment: TrackSegment{
				TrackPoints: []TrackPoint{},
			},
		},
	}

	return &GPXWriter{filename: filename, gpx: gpx, file: file}, nil
}

// AddTrackPoint adds a new track point to the GPX file
func (w *GPXWriter) AddTrackPoint(lat, lon float64, timestamp time.Time) {
	w.gpx.Track.TrackSegment.TrackPoints = append(w.gpx.Track.TrackSegment.TrackPoints, TrackPoint{
		Lat:  lat,
		Lon:  lon,
		Time: timestamp.UTC(),
	})
}

// WriteToFile rewrites the whole document
func (w *GPXWriter) WriteToFile() error {
	if _, err := w.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek gpx file: %w", err)
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate gpx file: %w", err)
	}
	if _, err := w.file.WriteString(xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}

	encoder := xml.NewEncoder(w.file)
	encoder.Indent("", "  ")
	if err := encoder.Encode(w.gpx); err != nil {
		return fmt.Errorf("encode gpx data: %w", err)
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync gpx file: %w", err)
	}
	return nil
}

// Close writes the final document and closes the file
func (w *GPXWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.WriteToFile()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	return err
}

// TrackPointCount returns the number of track points currently stored
func (w *GPXWriter) TrackPointCount() int {
	return len(w.gpx.Track.TrackSegment.TrackPoints)
}
