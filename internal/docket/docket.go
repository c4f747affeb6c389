// Package docket lists and reads the reports filed in an output directory.
package docket

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReportSuffix ends every filed report name.
const ReportSuffix = "_Court_Report.txt"

// ErrNotFound is returned by Read when no report has the given name.
var ErrNotFound = errors.New("docket: report not found")

// ErrInvalidName is returned by Read for names that are not plain report
// filenames.
var ErrInvalidName = errors.New("docket: invalid report name")

// Entry describes one filed report.
type Entry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Title    string    `json:"title"`
	Docket   string    `json:"docket,omitempty"`
	Date     string    `json:"date,omitempty"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// List scans dir for reports, newest first. A missing directory yields an
// empty list.
func List(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docket: read %s: %w", dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ReportSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, de.Name())
		e := Entry{
			Name:     de.Name(),
			Path:     path,
			Title:    strings.TrimSuffix(de.Name(), ReportSuffix),
			Size:     info.Size(),
			Modified: info.ModTime(),
		}
		if h, err := readHeader(path); err == nil {
			if h.title != "" {
				e.Title = h.title
			}
			e.Docket = h.docket
			e.Date = h.date
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Modified.Equal(entries[j].Modified) {
			return entries[i].Modified.After(entries[j].Modified)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Read returns the text of the report called name in dir.
func Read(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ReportSuffix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("docket: read %s: %w", name, err)
	}
	return string(data), nil
}

type header struct {
	title, docket, date string
}

// headerLines bounds how far into a report the header is searched for.
const headerLines = 20

func readHeader(path string) (header, error) {
	f, err := os.Open(path)
	if err != nil {
		return header{}, err
	}
	defer f.Close()

	var h header
	scanner := bufio.NewScanner(f)
	for n := 0; n < headerLines && scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Case Title:"):
			h.title = strings.TrimSpace(strings.TrimPrefix(line, "Case Title:"))
		case strings.HasPrefix(line, "Docket No.:"):
			h.docket = strings.TrimSpace(strings.TrimPrefix(line, "Docket No.:"))
		case strings.HasPrefix(line, "Date:"):
			h.date = strings.TrimSpace(strings.TrimPrefix(line, "Date:"))
		}
	}
	return h, scanner.Err()
}
