package domain

// FallbackRule lists, for one canonical variable, the columns that may stand
// in for it when it is missing. Candidates are tried in order.
type FallbackRule struct {
	Variable   string
	Candidates []string
}

// FallbackRules is the priority chain applied after the scaffold join.
// Pollutants fall back from ground to satellite to aerosol estimates.
// Weather variables fall back to the weather source when the base carried
// its own column of the same name.
var FallbackRules = buildFallbackRules()

func buildFallbackRules() []FallbackRule {
	var rules []FallbackRule
	for _, v := range Pollutants {
		rules = append(rules, FallbackRule{
			Variable:   v,
			Candidates: []string{v + SourceSatellite.Suffix(), v + SourceAerosol.Suffix()},
		})
	}
	for _, v := range Meteorology {
		rules = append(rules, FallbackRule{
			Variable:   v,
			Candidates: []string{v + SourceWeather.Suffix()},
		})
	}
	return rules
}

// Impute fills missing canonical values from their fallback columns. A value
// that is present is never replaced, so ground always wins over satellite and
// satellite over aerosol. The input table is not modified.
func Impute(t HourlyTable) HourlyTable {
	out := HourlyTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]HourlyRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		values := cloneValues(r.Values)
		for _, rule := range FallbackRules {
			if present(values, rule.Variable) {
				continue
			}
			for _, c := range rule.Candidates {
				if present(values, c) {
					values[rule.Variable] = values[c]
					break
				}
			}
		}
		out.Rows[i] = HourlyRow{Time: r.Time, Values: values}
	}
	for _, rule := range FallbackRules {
		out.Columns = appendColumn(out.Columns, rule.Variable)
	}
	return out
}
