//go:build !integration

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/hospital-cli/internal/model"
)

const canonicalCSV = `Hospital Name,Street Address,City,State,ZIP,Phone
Albany Medical Center Hospital,43 New Scotland Ave,Albany,NY,12208,(518) 262-3125
Lakeside Memorial,1 Lake St,Brockport,NY,14420,(585) 555-0100
`

var visitsHeader = []string{"Facility ID", "Facility Name", "Address", "City/Town", "State", "ZIP Code", "Telephone Number", "Measure ID"}

var visitsRows = [][]string{
	{"330013", "ALBANY MEDICAL CENTER HOSPITAL", "43 NEW SCOTLAND AVENUE", "ALBANY", "NY", "12208", "(518) 262-3125", "EDAC_30_AMI"},
	{"330013", "ALBANY MEDICAL CENTER HOSPITAL", "43 NEW SCOTLAND AVENUE", "ALBANY", "NY", "12208", "(518) 262-3125", "EDAC_30_HF"},
	{"330999", "MERCY HOSPITAL OF BUFFALO", "565 ABBOTT ROAD", "BUFFALO", "NY", "14220", "(716) 826-7000", "EDAC_30_AMI"},
	{"070001", "YALE NEW HAVEN", "20 YORK ST", "NEW HAVEN", "CT", "06510", "(203) 688-4242", "EDAC_30_AMI"},
}

const visitsCSV = `Facility ID,Facility Name,Address,City/Town,State,ZIP Code,Telephone Number,Measure ID
330013,ALBANY MEDICAL CENTER HOSPITAL,43 NEW SCOTLAND AVENUE,ALBANY,NY,12208,(518) 262-3125,EDAC_30_AMI
330013,ALBANY MEDICAL CENTER HOSPITAL,43 NEW SCOTLAND AVENUE,ALBANY,NY,12208,(518) 262-3125,EDAC_30_HF
330999,MERCY HOSPITAL OF BUFFALO,565 ABBOTT ROAD,BUFFALO,NY,14220,(716) 826-7000,EDAC_30_AMI
070001,YALE NEW HAVEN,20 YORK ST,NEW HAVEN,CT,06510,(203) 688-4242,EDAC_30_AMI
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func staffingPages() []model.Page {
	return []model.Page{
		{Number: 1, Text: "HOSPITAL INFORMATION", Tables: [][][]string{{
			{"HOSPITAL INFORMATION"},
			{"Reporting Organization ID", "0001"},
			{"Reporting Organization", "Albany Medical Center Hospital"},
			{"County", "Albany"},
			{"Region", "Capital District"},
		}}},
		{Number: 2, Text: "RN DAY SHIFT", Tables: [][][]string{{
			{"RN DAY SHIFT"},
			{"Unit", "Description", "Count", "Hours/Patient", "Avg Patients", "Patients/Staff"},
			{"Critical Care", "Adult ICU", "12", "8.5", "10", "2"},
			{"Pediatrics", "Peds", "4", "6", "7", "3"},
		}}},
	}
}

type fakeExtractor struct {
	pages []model.Page
	err   error
}

func (f *fakeExtractor) ExtractPages(_ context.Context, _ []byte) ([]model.Page, error) {
	return f.pages, f.err
}

type fakeDownloader struct {
	docs map[string][]byte
}

func (f *fakeDownloader) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := f.docs[url]
	if !ok {
		return nil, errors.New("unexpected status 404")
	}
	return body, nil
}
