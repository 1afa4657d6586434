package sanitizer

import "sicakap/pkg/model"

// SanitizeRecord normalizes r in place before validation.
func SanitizeRecord(r *model.Record) {
	r.RegDate = TrimAndNormalize(r.RegDate)
	r.ServiceCode = NormalizeCode(r.ServiceCode)
	r.NIK = NormalizeDigits(r.NIK)
	r.Name = NormalizeName(r.Name)
	r.PhoneNumber = NormalizePhone(r.PhoneNumber)
	r.Email = NormalizeEmail(r.Email)
	r.NoSKPWNI = NormalizeDocumentNumber(r.NoSKPWNI)
	r.NoSKDWNI = NormalizeDocumentNumber(r.NoSKDWNI)
	r.NoSKBWNI = NormalizeDocumentNumber(r.NoSKBWNI)
	r.NoKK = NormalizeDigits(r.NoKK)
	r.Status = NormalizeCode(r.Status)
	r.Notes = TrimAndNormalize(r.Notes)
	if r.Status == "" {
		r.Status = model.StatusInProgress
	}
}
