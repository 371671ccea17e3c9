// Command stackinfo inspects a written geostack and checks its integrity:
// file geometry, georeferencing metadata, band descriptions, and agreement
// with the JSON catalog sidecar.
//
// Usage:
//
//	go run ./cmd/stackinfo \
//	  -stack output/pm2_5_geostack.nc \
//	  -catalog output/pm2_5_geostack_catalog.json
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/geostack-pipeline/internal/adapter/netcdf"
	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// phase tracks pass/fail for one inspection phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	stackPath := flag.String("stack", "", "path to a *_geostack.nc file")
	catalogPath := flag.String("catalog", "", "path to the *_geostack_catalog.json sidecar (optional)")
	flag.Parse()

	if *stackPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*stackPath, *catalogPath); code != 0 {
		os.Exit(code)
	}
}

func run(stackPath, catalogPath string) int {
	fmt.Println("=== Geostack Integrity Inspection ===")
	fmt.Println()

	info, err := netcdf.ReadInfo(stackPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read stack: %v\n", err)
		return 1
	}

	fmt.Printf("stack:    %s\n", info.StackName)
	fmt.Printf("bands:    %d\n", info.Bands)
	fmt.Printf("grid:     %d rows x %d cols\n", info.Rows, info.Cols)
	fmt.Printf("crs:      %s\n", info.CRS)
	fmt.Printf("run:      %s (created %s)\n", info.RunID, info.CreatedAt)
	fmt.Printf("variance: %v\n", info.HasVariance)

	phases := []*phase{
		checkGeometry(info),
		checkBandData(stackPath, info),
	}

	if catalogPath != "" {
		entries, err := netcdf.ReadCatalog(catalogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read catalog: %v\n", err)
			return 1
		}
		phases = append(phases, checkCatalog(info, entries))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		allPassed = false
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println()
	fmt.Println("all checks passed")
	return 0
}

// checkGeometry verifies the grid shape and the affine transform. The
// transform is GDAL-ordered: origin lon, lon cell, 0, origin lat, 0,
// negative lat cell.
func checkGeometry(info *netcdf.Info) *phase {
	p := &phase{name: "geometry"}

	if info.Rows < 2 || info.Cols < 2 {
		p.errorf("grid %dx%d is degenerate, want at least 2x2", info.Rows, info.Cols)
	}
	if info.Bands < 1 {
		p.errorf("stack has no bands")
	}
	if info.CRS != "EPSG:4326" {
		p.errorf("crs %q, want EPSG:4326", info.CRS)
	}

	tr := info.Transform
	if len(tr) != 6 {
		p.errorf("transform has %d elements, want 6", len(tr))
		return p
	}
	if tr[1] <= 0 {
		p.errorf("lon cell size %g must be positive", tr[1])
	}
	if tr[5] >= 0 {
		p.errorf("lat cell size %g must be negative (row 0 is north)", tr[5])
	}
	if tr[2] != 0 || tr[4] != 0 {
		p.errorf("rotation terms %g, %g must be zero", tr[2], tr[4])
	}
	if tr[0] < -180 || tr[0] > 180 || tr[3] < -90 || tr[3] > 90 {
		p.errorf("origin (%g, %g) outside valid lon/lat range", tr[0], tr[3])
	}
	return p
}

// checkBandData reads every band and verifies it has the declared shape and
// at least one finite cell.
func checkBandData(path string, info *netcdf.Info) *phase {
	p := &phase{name: "band data"}

	for band := 1; band <= info.Bands; band++ {
		cells, err := netcdf.ReadBand(path, band)
		if err != nil {
			p.errorf("band %d: %v", band, err)
			continue
		}
		if len(cells) != info.Rows*info.Cols {
			p.errorf("band %d has %d cells, want %d", band, len(cells), info.Rows*info.Cols)
			continue
		}
		finite := 0
		for _, v := range cells {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite++
			}
		}
		if finite == 0 {
			p.errorf("band %d is entirely NaN", band)
		} else {
			frac := float64(finite) / float64(len(cells))
			fmt.Printf("band %d: %.1f%% finite cells\n", band, 100*frac)
		}
	}
	return p
}

// checkCatalog cross-references the stack against its JSON sidecar.
func checkCatalog(info *netcdf.Info, entries []domain.CatalogEntry) *phase {
	p := &phase{name: "catalog agreement"}

	if len(entries) != info.Bands {
		p.errorf("catalog has %d entries, stack has %d bands", len(entries), info.Bands)
	}
	if len(info.Descriptions) != info.Bands {
		p.errorf("stack declares %d descriptions for %d bands", len(info.Descriptions), info.Bands)
	}

	for i, e := range entries {
		if e.Band != i+1 {
			p.errorf("entry %d has band number %d, want %d", i, e.Band, i+1)
		}
		if e.Variable == "" {
			p.errorf("entry %d has no variable", i)
		}
		if e.Method != string(domain.MethodKriging) && e.Method != string(domain.MethodIDW) {
			p.errorf("entry %d has unknown method %q", i, e.Method)
		}
		if i < len(info.Descriptions) {
			want := e.Variable + " - " + e.Date
			if info.Descriptions[i] != want {
				p.errorf("band %d description %q, want %q", i+1, info.Descriptions[i], want)
			}
		}
	}
	return p
}

