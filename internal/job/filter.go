package job

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// HostFilter restricts which free systems are returned by list-systems.
// Thresholds are exclusive.
type HostFilter struct {
	Arch            string
	MachineType     string
	ProcessorsAbove int
	MemoryAboveMB   int
	DiskAboveMB     int
	BareMetal       bool
}

// DefaultFilter asks for physical x86_64 machines with more than 3 CPUs,
// 11GB of RAM and 120GB of disk.
var DefaultFilter = HostFilter{
	Arch:            "x86_64",
	MachineType:     "Machine",
	ProcessorsAbove: 3,
	MemoryAboveMB:   11000,
	DiskAboveMB:     120000,
	BareMetal:       true,
}

type filterDocument struct {
	XMLName xml.Name  `xml:"hostRequires"`
	And     filterAnd `xml:"and"`
}

type filterAnd struct {
	Terms []filterTerm
}

type filterTerm struct {
	XMLName xml.Name
	Key     string `xml:"key,attr,omitempty"`
	Op      string `xml:"op,attr"`
	Value   string `xml:"value,attr"`
}

func term(element, key, op string, value int) filterTerm {
	return filterTerm{
		XMLName: xml.Name{Local: element},
		Key:     key,
		Op:      op,
		Value:   strconv.Itoa(value),
	}
}

// XML serializes the filter as a single-line hostRequires document suitable
// for the --xml-filter argument.
func (f HostFilter) XML() (string, error) {
	terms := []filterTerm{
		term("key_value", "PROCESSORS", ">", f.ProcessorsAbove),
		term("memory", "", ">", f.MemoryAboveMB),
		term("key_value", "DISKSPACE", ">", f.DiskAboveMB),
	}
	if f.BareMetal {
		// An empty hypervisor matches systems that are not virtualized
		terms = append(terms, filterTerm{XMLName: xml.Name{Local: "hypervisor"}, Op: "=", Value: ""})
	}

	out, err := xml.Marshal(filterDocument{And: filterAnd{Terms: terms}})
	if err != nil {
		return "", fmt.Errorf("failed to serialize host filter: %w", err)
	}
	return string(out), nil
}
