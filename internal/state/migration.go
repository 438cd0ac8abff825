package state

// upgrade folds fields written by earlier tools into the current layout and
// reports how many entity records were touched. Nothing is dropped.
func (d *document) upgrade() int {
	touched := 0
	if len(d.LegacyBills) > 0 {
		d.Entities = append(d.Entities, d.LegacyBills...)
		d.LegacyBills = nil
	}
	for i := range d.Entities {
		if d.Entities[i].upgrade() {
			touched++
		}
	}
	d.SchemaVersion = schemaVersion
	return touched
}

func (r *entityRecord) upgrade() bool {
	changed := false
	if r.ID == "" && r.LegacyID != "" {
		r.ID, changed = r.LegacyID, true
	}
	if r.Classification == nil && r.LegacyBillType != nil {
		r.Classification, changed = r.LegacyBillType, true
	}
	if r.SpecialAssentDate == nil && r.LegacyAssentDate != nil {
		r.SpecialAssentDate, changed = r.LegacyAssentDate, true
	}
	if r.HasSpecialRecommendation == nil && r.LegacyRecommendation != nil {
		r.HasSpecialRecommendation, changed = r.LegacyRecommendation, true
	}
	if r.Active == nil && r.LegacyActive != nil {
		r.Active, changed = r.LegacyActive, true
	}
	r.LegacyID, r.LegacyBillType, r.LegacyAssentDate = "", nil, nil
	r.LegacyRecommendation, r.LegacyActive = nil, nil

	for i := range r.History {
		s := &r.History[i]
		if s.SourceURL == nil && s.LegacyTextURL != nil {
			s.SourceURL, changed = s.LegacyTextURL, true
		}
		if s.Amended == nil && s.LegacyTextChanged != nil {
			s.Amended, changed = s.LegacyTextChanged, true
		}
		s.LegacyTextURL, s.LegacyTextChanged = nil, nil
	}
	return changed
}
