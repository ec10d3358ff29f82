package tumor

import "fmt"

type Phenotype uint8

const (
	Baseline Phenotype = iota
	Proliferative
	Quiescent
	DamagedQuiescent
	Dead

	numPhenotypes
)

var phenotypeNames = [numPhenotypes]string{
	Baseline:         "BASELINE",
	Proliferative:    "PROLIFERATIVE",
	Quiescent:        "QUIESCENT",
	DamagedQuiescent: "DAMAGED_QUIESCENT",
	Dead:             "DEAD",
}

func (p Phenotype) String() string {
	if p < numPhenotypes {
		return phenotypeNames[p]
	}
	return fmt.Sprintf("PHENOTYPE(%d)", uint8(p))
}

func (p Phenotype) Valid() bool { return p < numPhenotypes }

// IsTumor reports whether p counts towards the tumor burden.
func (p Phenotype) IsTumor() bool {
	return p == Proliferative || p == Quiescent || p == DamagedQuiescent
}

// growthTarget reports whether territorial growth may take over a cell of phenotype p.
func (p Phenotype) growthTarget() bool {
	return !p.IsTumor() && p != Dead
}

func ParsePhenotype(s string) (Phenotype, error) {
	for i, name := range phenotypeNames {
		if name == s {
			return Phenotype(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phenotype %q", s)
}

func (p Phenotype) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown phenotype %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Phenotype) UnmarshalText(b []byte) error {
	v, err := ParsePhenotype(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PhenotypeNames lists phenotype names indexed by their numeric value.
func PhenotypeNames() []string { return append([]string(nil), phenotypeNames[:]...) }
