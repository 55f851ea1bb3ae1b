package job

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/andreweick/beakergrab/internal/distro"
)

const (
	// ReserveTime is how long reservesys holds the machine, in seconds (six days)
	ReserveTime = 518400

	retentionTag = "scratch"
	priority     = "High"
	defaultArch  = "x86_64"
)

// Request is everything needed to render one reservation job
type Request struct {
	Host         string
	Arch         string
	Distro       distro.Profile
	Provisioning distro.Provisioning
}

type document struct {
	XMLName      xml.Name  `xml:"job"`
	RetentionTag string    `xml:"retention_tag,attr"`
	Whiteboard   string    `xml:"whiteboard"`
	RecipeSet    recipeSet `xml:"recipeSet"`
}

type recipeSet struct {
	Priority string `xml:"priority,attr"`
	Recipe   recipe `xml:"recipe"`
}

type recipe struct {
	Whiteboard        string         `xml:"whiteboard,attr"`
	Role              string         `xml:"role,attr"`
	KSMeta            string         `xml:"ks_meta,attr"`
	KernelOptions     string         `xml:"kernel_options,attr"`
	KernelOptionsPost string         `xml:"kernel_options_post,attr"`
	Autopick          autopick       `xml:"autopick"`
	Watchdog          watchdog       `xml:"watchdog"`
	Packages          struct{}       `xml:"packages"`
	KSAppends         struct{}       `xml:"ks_appends"`
	Repos             struct{}       `xml:"repos"`
	DistroRequires    distroRequires `xml:"distroRequires"`
	HostRequires      hostRequires   `xml:"hostRequires"`
	Partitions        partitions     `xml:"partitions"`
	Tasks             []task         `xml:"task"`
}

type autopick struct {
	Random bool `xml:"random,attr"`
}

type watchdog struct {
	Panic string `xml:"panic,attr"`
}

type condition struct {
	Op    string `xml:"op,attr"`
	Value string `xml:"value,attr"`
}

type distroRequires struct {
	And distroAnd `xml:"and"`
}

type distroAnd struct {
	Name    condition  `xml:"distro_name"`
	Variant *condition `xml:"distro_variant,omitempty"`
	Family  *condition `xml:"distro_family,omitempty"`
	Arch    condition  `xml:"distro_arch"`
}

type hostRequires struct {
	Force string `xml:"force,attr"`
}

type partitions struct {
	Partition []partition `xml:"partition"`
}

type partition struct {
	FS   string `xml:"fs,attr"`
	Name string `xml:"name,attr"`
	Size string `xml:"size,attr"`
	Type string `xml:"type,attr"`
}

type task struct {
	Name   string  `xml:"name,attr"`
	Role   string  `xml:"role,attr"`
	Params *params `xml:"params,omitempty"`
}

type params struct {
	Param []param `xml:"param"`
}

type param struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func equals(value string) *condition {
	if value == "" {
		return nil
	}
	return &condition{Op: "=", Value: value}
}

func build(req Request) document {
	arch := req.Arch
	if arch == "" {
		arch = defaultArch
	}

	parts := make([]partition, 0, len(req.Provisioning.Partitions))
	for _, p := range req.Provisioning.Partitions {
		parts = append(parts, partition{
			FS:   p.FS,
			Name: p.Name,
			Size: strconv.Itoa(p.SizeGB),
			Type: p.Type,
		})
	}

	return document{
		RetentionTag: retentionTag,
		Whiteboard:   fmt.Sprintf("beakergrab %s on %s", req.Distro.Name, req.Host),
		RecipeSet: recipeSet{
			Priority: priority,
			Recipe: recipe{
				Role:     "RECIPE_MEMBERS",
				KSMeta:   req.Provisioning.KSMeta,
				Autopick: autopick{Random: false},
				Watchdog: watchdog{Panic: "ignore"},
				DistroRequires: distroRequires{And: distroAnd{
					Name:    condition{Op: "=", Value: req.Distro.Name},
					Variant: equals(req.Distro.Variant),
					Family:  equals(req.Distro.Family),
					Arch:    condition{Op: "=", Value: arch},
				}},
				HostRequires: hostRequires{Force: req.Host},
				Partitions:   partitions{Partition: parts},
				Tasks: []task{
					{Name: "/distribution/install", Role: "STANDALONE"},
					{
						Name: "/distribution/reservesys",
						Role: "STANDALONE",
						Params: &params{Param: []param{
							{Name: "RESERVETIME", Value: strconv.Itoa(ReserveTime)},
						}},
					},
				},
			},
		},
	}
}

// Render serializes the job document for req. Output depends only on req.
func Render(req Request) ([]byte, error) {
	out, err := xml.MarshalIndent(build(req), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render job for %s: %w", req.Host, err)
	}
	return append(out, '\n'), nil
}
