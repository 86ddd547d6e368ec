// Package codec builds and parses the pipe-delimited strings exchanged with
// the HimKosh gateway. Field order on the wire is fixed by the treasury
// integration and must not follow struct or map ordering.
package codec

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ChecksumKey is the key of the trailing checksum segment. The gateway spells
// it "checkSum" on requests; responses have been observed with both spellings,
// so parsing treats keys case-insensitively.
const ChecksumKey = "checkSum"

// RequestFields are the inputs to a payment request string. Optional
// head/amount pairs (2, 3, 4, 10) are emitted only when the head code is
// non-empty and the rounded amount is strictly positive.
type RequestFields struct {
	DeptID      string
	DeptRefNo   string
	TotalAmount decimal.Decimal
	TenderBy    string
	AppRefNo    string
	Head1       string
	Amount1     decimal.Decimal
	Head2       string
	Amount2     decimal.Decimal
	Ddo         string
	PeriodFrom  string
	PeriodTo    string
	Head3       string
	Amount3     decimal.Decimal
	Head4       string
	Amount4     decimal.Decimal
	Head10      string
	Amount10    decimal.Decimal
	ServiceCode string
	ReturnURL   string
}

// Request is a built payment request in both of its wire forms. Core excludes
// Service_code and return_url and is what the checksum is computed over; Full
// includes them and is what gets the checksum appended and encrypted.
type Request struct {
	Core string
	Full string
}

// BuildRequest assembles the request string in the gateway's fixed field
// order. Monetary amounts are rounded to whole rupees; the gateway has no
// decimal precision.
func BuildRequest(f RequestFields) Request {
	var core []string

	add := func(key, value string) {
		core = append(core, key+"="+value)
	}
	addPair := func(headKey, head, amountKey string, amount decimal.Decimal) {
		rounded := amount.Round(0)
		if head != "" && rounded.IsPositive() {
			add(headKey, head)
			add(amountKey, rounded.String())
		}
	}

	add("DeptID", f.DeptID)
	add("DeptRefNo", f.DeptRefNo)
	add("TotalAmount", f.TotalAmount.Round(0).String())
	add("TenderBy", f.TenderBy)
	add("AppRefNo", f.AppRefNo)
	addPair("Head1", f.Head1, "Amount1", f.Amount1)
	addPair("Head2", f.Head2, "Amount2", f.Amount2)
	add("Ddo", f.Ddo)
	add("PeriodFrom", f.PeriodFrom)
	add("PeriodTo", f.PeriodTo)
	addPair("Head3", f.Head3, "Amount3", f.Amount3)
	addPair("Head4", f.Head4, "Amount4", f.Amount4)
	addPair("Head10", f.Head10, "Amount10", f.Amount10)

	full := make([]string, len(core), len(core)+2)
	copy(full, core)
	if f.ServiceCode != "" {
		full = append(full, "Service_code="+f.ServiceCode)
	}
	if f.ReturnURL != "" {
		full = append(full, "return_url="+f.ReturnURL)
	}

	return Request{
		Core: strings.Join(core, "|"),
		Full: strings.Join(full, "|"),
	}
}

// AppendChecksum attaches the checksum segment to a built request string.
func AppendChecksum(request, checksum string) string {
	return request + "|" + ChecksumKey + "=" + checksum
}

// VerificationFields are the inputs to a double-verification request, which
// uses a different, shorter format than the payment request.
type VerificationFields struct {
	AppRefNo     string
	ServiceCode  string
	MerchantCode string
}

// BuildVerificationRequest assembles the verification string. The checksum is
// appended by the caller the same way as for payment requests.
func BuildVerificationRequest(f VerificationFields) string {
	return strings.Join([]string{
		"AppRefNo=" + f.AppRefNo,
		"Service_code=" + f.ServiceCode,
		"merchant_code=" + f.MerchantCode,
	}, "|")
}

// Response is a parsed gateway response. Raw preserves every key seen on the
// wire; the typed fields default to empty strings when absent.
type Response struct {
	AppRefNo    string
	DeptRefNo   string
	TotalAmount string
	EchTxnID    string
	BankCIN     string
	BankName    string
	PaymentDate string
	Status      string
	StatusCd    string
	Checksum    string

	Raw map[string]string
}

// ParseResponse splits a pipe-delimited response defensively. The gateway is
// an external, uncontrolled sender: missing keys default to empty, segments
// without '=' are kept keyed by themselves, and no input can make this panic.
// Malformed input degrades to a downstream checksum or lookup failure.
func ParseResponse(text string) Response {
	raw := make(map[string]string)
	lookup := make(map[string]string)
	for _, segment := range strings.Split(text, "|") {
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, "=")
		if !found {
			value = ""
		}
		raw[key] = value
		lookup[strings.ToLower(key)] = value
	}
	get := func(key string) string { return lookup[strings.ToLower(key)] }

	return Response{
		AppRefNo:    get("AppRefNo"),
		DeptRefNo:   get("DeptRefNo"),
		TotalAmount: get("TotalAmount"),
		EchTxnID:    get("EchTxnId"),
		BankCIN:     get("BankCIN"),
		BankName:    get("BankName"),
		PaymentDate: get("PaymentDate"),
		Status:      get("Status"),
		StatusCd:    get("StatusCd"),
		Checksum:    get(ChecksumKey),
		Raw:         raw,
	}
}

// StripChecksum removes the trailing checksum segment from a response string
// so the digest can be recomputed over exactly what the sender checksummed.
// If the last segment is not a checksum the input is returned unchanged.
func StripChecksum(text string) string {
	idx := strings.LastIndex(text, "|")
	if idx < 0 {
		return text
	}
	last := text[idx+1:]
	key, _, found := strings.Cut(last, "=")
	if found && strings.EqualFold(key, ChecksumKey) {
		return text[:idx]
	}
	return text
}
