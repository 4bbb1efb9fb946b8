package dicom

import (
	"fmt"
	"math/rand/v2"
)

// species used for preclinical subject names, "Rat^R07" style.
var species = []struct {
	Name    string
	Code    string
	Strains []string
}{
	{Name: "Rat", Code: "R", Strains: []string{"Wistar", "Sprague-Dawley", "Long-Evans", "Fischer 344"}},
	{Name: "Mouse", Code: "M", Strains: []string{"C57BL/6", "BALB/c", "CD-1", "129/Sv"}},
	{Name: "Marmoset", Code: "C", Strains: []string{"Callithrix jacchus"}},
	{Name: "Macaque", Code: "K", Strains: []string{"Macaca mulatta", "Macaca fascicularis"}},
}

// protocols commonly acquired on small-animal Bruker scanners.
var protocols = []struct {
	Name        string
	Description string
	Sequence    string
}{
	{Name: "T2_TurboRARE", Description: "T2 TurboRARE axial", Sequence: "RARE"},
	{Name: "T1_FLASH", Description: "T1 FLASH 3D", Sequence: "FLASH"},
	{Name: "DTI_EPI", Description: "DTI EPI 30 directions", Sequence: "DtiEpi"},
	{Name: "MSME_T2map", Description: "MSME T2 map", Sequence: "MSME"},
	{Name: "FAIR_EPI", Description: "FAIR EPI perfusion", Sequence: "FAIR_EPI"},
	{Name: "B0Map", Description: "B0 field map", Sequence: "FieldMap"},
}

type subject struct {
	Name      string
	ID        string
	Sex       string
	BirthDate string
	Strain    string
}

// newSubject builds a deterministic preclinical subject for index.
func newSubject(index int, rng *rand.Rand) subject {
	sp := species[rng.IntN(len(species))]
	sex := "M"
	if rng.IntN(2) == 0 {
		sex = "F"
	}
	return subject{
		Name:      fmt.Sprintf("%s^%s%02d", sp.Name, sp.Code, index+1),
		ID:        fmt.Sprintf("%s%03d%03d", sp.Code, index+1, rng.IntN(1000)),
		Sex:       sex,
		BirthDate: fmt.Sprintf("2025%02d%02d", 1+rng.IntN(12), 1+rng.IntN(28)),
		Strain:    sp.Strains[rng.IntN(len(sp.Strains))],
	}
}
