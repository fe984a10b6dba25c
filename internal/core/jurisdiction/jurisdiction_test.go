package jurisdiction

import (
	"testing"

	"github.com/joseph-ayodele/blotter-tracker/constants"
)

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		name string
		text string
		want constants.Format
	}{
		{"gcso marker beats county phrase", "Park County\nGCSO Command Log\n", constants.FormatGCSO},
		{"gallatin county literal", "Gallatin County dispatch", constants.FormatGCSO},
		{"gcso is case sensitive", "gcso", constants.FormatGeneric},
		{"gcso before helena", "GCSO assisted Helena Police", constants.FormatGCSO},
		{"helena name", "From the helena police department", constants.FormatHelena},
		{"helena domain", "see www.helenamt.gov", constants.FormatHelena},
		{"helena before havre", "HPD Officers responded with Havre Police", constants.FormatHelena},
		{"havre header", "HAVRE POLICE DEPT", constants.FormatHavre},
		{"havre jurisdiction", "For Jurisdiction:   havre", constants.FormatHavre},
		{"generic", "Lewis County\n01/02/26 Theft - bike", constants.FormatGeneric},
		{"empty", "", constants.FormatGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectFormat(tt.text); got != tt.want {
				t.Errorf("SelectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectCounty(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"sheriff phrase first", "Park County report\nMadison County Sheriff", "Madison"},
		{"gcso token", "Blotter GCSO Park County", "Gallatin"},
		{"gcso token any case", "blotter from gcso", "Gallatin"},
		{"bare county", "incidents in park county today", "park"},
		{"helena forced", "Helena Police Department, Jefferson County", constants.HelenaCounty},
		{"havre forced", "For Jurisdiction: HAVRE\nBlaine County", constants.HavreCounty},
		{"unknown", "nothing here", constants.UnknownCounty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCounty(tt.text); got != tt.want {
				t.Errorf("DetectCounty() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectAgency(t *testing.T) {
	tests := []struct {
		name                     string
		text, sender, file, cnty string
		wantType, wantName       string
	}{
		{"gcso filename", "", "", "gcso_0211.pdf", "", constants.AgencySheriff, "Gallatin County Sheriff's Office"},
		{"gcso filename with county", "", "", "GCSO.pdf", "Park", constants.AgencySheriff, "Park County Sheriff's Office"},
		{"lcso filename", "", "", "LCSO blotter.pdf", "", constants.AgencySheriff, "Lewis and Clark County Sheriff's Office"},
		{"so token", "", "", "Madison SO.pdf", "Madison", constants.AgencySheriff, "Madison County Sheriff's Office"},
		{"pd token no county", "", "", "daily PD log.pdf", "", constants.AgencyPolice, "Police Department"},
		{"sheriff content", "Issued by the Park County Sheriff's Office\n", "", "", "", constants.AgencySheriff, "Issued by the Park County Sheriff's Office"},
		{"sheriff keyword only", "SHERIFF: none", "", "", "Hill", constants.AgencySheriff, "Hill Sheriff's Office"},
		{"police department content", "Havre Police Department", "", "", "", constants.AgencyPolice, "Havre Police Department"},
		{"pd content", "HPD log", "", "", "Hill", constants.AgencyOther, ""},
		{"pd token content", "from PD today", "", "", "Hill", constants.AgencyPolice, "Hill Police Department"},
		{"sender sheriff", "", "Sheriff.Dispatch@mt.gov", "", "Park", constants.AgencySheriff, "Park Sheriff's Office"},
		{"sender pd", "", "pd@havremt.gov", "", "", constants.AgencyPolice, "Police Department"},
		{"sender other", "", "records@city.gov", "", "", constants.AgencyOther, ""},
		{"nothing", "", "", "", "", constants.AgencyOther, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotName := DetectAgency(tt.text, tt.sender, tt.file, tt.cnty)
			if gotType != tt.wantType || gotName != tt.wantName {
				t.Errorf("DetectAgency() = (%q, %q), want (%q, %q)", gotType, gotName, tt.wantType, tt.wantName)
			}
		})
	}
}
