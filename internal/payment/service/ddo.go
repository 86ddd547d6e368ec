package service

import "strings"

// districtDDOs maps a district to its treasury disbursement office code.
// Districts absent from the table fall back to the configured default, which
// routes to the state tourism directorate.
var districtDDOs = map[string]string{
	"bilaspur":         "BLP00-001",
	"chamba":           "CHM00-001",
	"hamirpur":         "HMR00-001",
	"kangra":           "KNG00-001",
	"kinnaur":          "KNR00-001",
	"kullu":            "KLU00-001",
	"lahaul and spiti": "LHS00-001",
	"mandi":            "MND00-001",
	"shimla":           "SML00-001",
	"sirmaur":          "SRM00-001",
	"solan":            "SOL00-001",
	"una":              "UNA00-001",
}

// resolveDDO returns the disbursement office code for a district.
func (s *Service) resolveDDO(district string) string {
	if ddo, ok := districtDDOs[strings.ToLower(strings.TrimSpace(district))]; ok {
		return ddo
	}
	return s.cfg.DefaultDDO
}
