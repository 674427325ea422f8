package money_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bataryakit/notifier/internal/money"
)

func TestFormat_TwoDecimalsAndSymbol(t *testing.T) {
	f := money.NewFormatter("en")

	assert.Equal(t, "130.00 TL", f.Format(130, ""))
	assert.Equal(t, "9.99 $", f.Format(9.99, "usd"))
	assert.Equal(t, "5.00 GBP", f.Format(5, "GBP"))
}

func TestFormat_NonFinite(t *testing.T) {
	f := money.NewFormatter("en")
	assert.Equal(t, "0.00 TL", f.Format(math.NaN(), "TRY"))
}

func TestFormat_TurkishLocale(t *testing.T) {
	out := money.NewFormatter("tr").Format(130, "TRY")
	assert.True(t, strings.HasPrefix(out, "130"), out)
	assert.True(t, strings.HasSuffix(out, " TL"), out)
}

func TestNewFormatter_BadLocaleFallsBack(t *testing.T) {
	out := money.NewFormatter("not a locale!!").Format(1, "TRY")
	assert.True(t, strings.HasSuffix(out, " TL"))
}
