package codec

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseFields() RequestFields {
	return RequestFields{
		DeptID:      "TSM",
		DeptRefNo:   "HS-2025-000123",
		TotalAmount: decimal.NewFromInt(9440),
		TenderBy:    "Department of Tourism",
		AppRefNo:    "HS1756300000000AB12",
		Head1:       "1452-80-800-01",
		Amount1:     decimal.NewFromInt(9440),
		Ddo:         "SML00-001",
		PeriodFrom:  "01/04/2025",
		PeriodTo:    "31/03/2026",
		ServiceCode: "HOMESTAY_REG",
		ReturnURL:   "https://portal.example/payment/callback",
	}
}

func TestBuildRequestFieldOrder(t *testing.T) {
	req := BuildRequest(baseFields())

	want := "DeptID=TSM" +
		"|DeptRefNo=HS-2025-000123" +
		"|TotalAmount=9440" +
		"|TenderBy=Department of Tourism" +
		"|AppRefNo=HS1756300000000AB12" +
		"|Head1=1452-80-800-01" +
		"|Amount1=9440" +
		"|Ddo=SML00-001" +
		"|PeriodFrom=01/04/2025" +
		"|PeriodTo=31/03/2026"
	assert.Equal(t, want, req.Core)
	assert.Equal(t, want+"|Service_code=HOMESTAY_REG|return_url=https://portal.example/payment/callback", req.Full)
}

func TestBuildRequestCoreExcludesServiceCodeAndReturnURL(t *testing.T) {
	req := BuildRequest(baseFields())
	assert.NotContains(t, req.Core, "Service_code")
	assert.NotContains(t, req.Core, "return_url")
	assert.Contains(t, req.Full, "Service_code=HOMESTAY_REG")
	assert.Contains(t, req.Full, "return_url=")
}

func TestBuildRequestOptionalPairs(t *testing.T) {
	t.Run("zero amount pair omitted", func(t *testing.T) {
		f := baseFields()
		f.Head2 = "1452-80-800-02"
		f.Amount2 = decimal.Zero
		req := BuildRequest(f)
		assert.NotContains(t, req.Core, "Head2")
		assert.NotContains(t, req.Core, "Amount2")
	})

	t.Run("negative amount pair omitted", func(t *testing.T) {
		f := baseFields()
		f.Head3 = "1452-80-800-03"
		f.Amount3 = decimal.NewFromInt(-5)
		req := BuildRequest(f)
		assert.NotContains(t, req.Core, "Head3")
	})

	t.Run("empty head omitted even with positive amount", func(t *testing.T) {
		f := baseFields()
		f.Amount4 = decimal.NewFromInt(100)
		req := BuildRequest(f)
		assert.NotContains(t, req.Core, "Head4")
		assert.NotContains(t, req.Core, "Amount4")
	})

	t.Run("sub-rupee amount rounds away before the positivity check", func(t *testing.T) {
		f := baseFields()
		f.Head2 = "1452-80-800-02"
		f.Amount2 = decimal.NewFromFloat(0.4) // rounds to 0
		req := BuildRequest(f)
		assert.NotContains(t, req.Core, "Head2")
	})

	t.Run("present pairs keep wire positions", func(t *testing.T) {
		f := baseFields()
		f.Head2, f.Amount2 = "H2", decimal.NewFromInt(10)
		f.Head10, f.Amount10 = "H10", decimal.NewFromInt(20)
		req := BuildRequest(f)
		// Head2 sits between Amount1 and Ddo; Head10 after Period block.
		assert.Contains(t, req.Core, "Amount1=9440|Head2=H2|Amount2=10|Ddo=")
		assert.True(t, strings.HasSuffix(req.Core, "PeriodTo=31/03/2026|Head10=H10|Amount10=20"))
	})
}

func TestBuildRequestRoundsAmounts(t *testing.T) {
	f := baseFields()
	f.TotalAmount = decimal.NewFromFloat(9439.50)
	f.Amount1 = decimal.NewFromFloat(9439.50)
	req := BuildRequest(f)
	assert.Contains(t, req.Core, "TotalAmount=9440")
	assert.Contains(t, req.Core, "Amount1=9440")
}

func TestBuildRequestOrderIndependentOfInput(t *testing.T) {
	// Two structurally identical field sets must yield byte-identical strings.
	a := BuildRequest(baseFields())
	b := BuildRequest(baseFields())
	require.Equal(t, a.Full, b.Full)
}

func TestAppendChecksum(t *testing.T) {
	out := AppendChecksum("A=1|B=2", "deadbeef")
	assert.Equal(t, "A=1|B=2|checkSum=deadbeef", out)
}

func TestBuildVerificationRequest(t *testing.T) {
	out := BuildVerificationRequest(VerificationFields{
		AppRefNo:     "HS1756300000000AB12",
		ServiceCode:  "HOMESTAY_REG",
		MerchantCode: "HIMSTAY_DEV",
	})
	assert.Equal(t, "AppRefNo=HS1756300000000AB12|Service_code=HOMESTAY_REG|merchant_code=HIMSTAY_DEV", out)
}

func TestParseResponse(t *testing.T) {
	t.Run("full response", func(t *testing.T) {
		text := "AppRefNo=HS123|DeptRefNo=HS-2025-000123|TotalAmount=9440" +
			"|EchTxnId=GRN0012345|BankCIN=CIN987|BankName=SBI" +
			"|PaymentDate=27/08/2026 11:05:00|Status=SUCCESS|StatusCd=1|checkSum=abc123"
		resp := ParseResponse(text)
		assert.Equal(t, "HS123", resp.AppRefNo)
		assert.Equal(t, "HS-2025-000123", resp.DeptRefNo)
		assert.Equal(t, "9440", resp.TotalAmount)
		assert.Equal(t, "GRN0012345", resp.EchTxnID)
		assert.Equal(t, "CIN987", resp.BankCIN)
		assert.Equal(t, "SBI", resp.BankName)
		assert.Equal(t, "27/08/2026 11:05:00", resp.PaymentDate)
		assert.Equal(t, "SUCCESS", resp.Status)
		assert.Equal(t, "1", resp.StatusCd)
		assert.Equal(t, "abc123", resp.Checksum)
	})

	t.Run("missing keys default to empty", func(t *testing.T) {
		resp := ParseResponse("AppRefNo=HS123|StatusCd=0")
		assert.Equal(t, "HS123", resp.AppRefNo)
		assert.Equal(t, "0", resp.StatusCd)
		assert.Empty(t, resp.EchTxnID)
		assert.Empty(t, resp.BankCIN)
	})

	t.Run("keys matched case-insensitively", func(t *testing.T) {
		resp := ParseResponse("apprefno=HS123|CHECKSUM=ABC")
		assert.Equal(t, "HS123", resp.AppRefNo)
		assert.Equal(t, "ABC", resp.Checksum)
	})

	t.Run("malformed input never panics", func(t *testing.T) {
		for _, text := range []string{"", "|||", "====", "a|b|c", "=value", "no-delimiters-at-all", "|=|=|"} {
			assert.NotPanics(t, func() { ParseResponse(text) }, "input %q", text)
		}
	})

	t.Run("segment without equals keeps empty value", func(t *testing.T) {
		resp := ParseResponse("Status")
		assert.Empty(t, resp.Status)
		_, ok := resp.Raw["Status"]
		assert.True(t, ok)
	})
}

func TestStripChecksum(t *testing.T) {
	t.Run("strips trailing checksum", func(t *testing.T) {
		assert.Equal(t, "A=1|B=2", StripChecksum("A=1|B=2|checkSum=abc"))
	})
	t.Run("checksum key case-insensitive", func(t *testing.T) {
		assert.Equal(t, "A=1|B=2", StripChecksum("A=1|B=2|checksum=abc"))
		assert.Equal(t, "A=1|B=2", StripChecksum("A=1|B=2|CHECKSUM=abc"))
	})
	t.Run("no checksum segment unchanged", func(t *testing.T) {
		assert.Equal(t, "A=1|B=2", StripChecksum("A=1|B=2"))
		assert.Equal(t, "bare", StripChecksum("bare"))
	})
	t.Run("checksum mid-string not stripped", func(t *testing.T) {
		assert.Equal(t, "checkSum=abc|A=1", StripChecksum("checkSum=abc|A=1"))
	})
}
