package geo

import "testing"

func TestStates_NonEmptySorted(t *testing.T) {
	states := States()
	if len(states) == 0 {
		t.Fatal("邦列表不应为空")
	}
	for i := 1; i < len(states); i++ {
		if states[i-1] > states[i] {
			t.Fatalf("邦列表未按字典序排序: %s > %s", states[i-1], states[i])
		}
	}
}

func TestDistricts(t *testing.T) {
	ds := Districts("Maharashtra")
	if len(ds) == 0 {
		t.Fatal("Maharashtra 的地区列表不应为空")
	}

	found := false
	for _, d := range ds {
		if d == "Pune" {
			found = true
		}
	}
	if !found {
		t.Error("Maharashtra 应包含 Pune")
	}

	if Districts("Atlantis") != nil {
		t.Error("不存在的邦应返回 nil")
	}
}

func TestIsValidDistrict(t *testing.T) {
	if !IsValidDistrict("Karnataka", "Bengaluru Urban") {
		t.Error("Bengaluru Urban 应属于 Karnataka")
	}
	if IsValidDistrict("Karnataka", "Pune") {
		t.Error("Pune 不属于 Karnataka")
	}
}

func TestValidateCoverage(t *testing.T) {
	tests := []struct {
		name      string
		states    []string
		districts []string
		wantErr   bool
	}{
		{"合法覆盖", []string{"Maharashtra", "Karnataka"}, []string{"Pune", "Mysuru"}, false},
		{"地区不属于覆盖邦", []string{"Karnataka"}, []string{"Pune"}, true},
		{"未知邦", []string{"Atlantis"}, nil, true},
		{"仅邦级覆盖", []string{"Delhi"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoverage(tt.states, tt.districts)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoverage(%v, %v) err=%v, wantErr=%v", tt.states, tt.districts, err, tt.wantErr)
			}
		})
	}
}
