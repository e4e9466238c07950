package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/billing"
	"github.com/j-veylop/quota-autopay/internal/services/session"
)

type fakeDetails struct {
	details map[string]*billing.PackageDetail
	err     error
	refs    []billing.PackageRef
	onCall  func()
}

func (f *fakeDetails) PackageDetail(_ context.Context, _ models.TokenBundle, ref billing.PackageRef) (*billing.PackageDetail, error) {
	f.refs = append(f.refs, ref)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.details[ref.FamilyCode], nil
}

func catalogServer(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

const twoOffers = `[
  {"name":"Other Offer","packages":[{"family_code":"X"}]},
  {"name":"  Masa Aktif 30 Hari + 100MB ","payment_for":"REDEEM","amount_idx":2,
   "packages":[{"family_code":"F1","variant_code":"V1","order":1},{"family_code":"F2","variant_code":"V2","order":3,"is_enterprise":true}]}
]`

func newSession() *session.Static {
	return session.NewStatic(models.TokenBundle{IDToken: "id", AccessToken: "acc"})
}

func TestResolveByName_CaseInsensitiveExact(t *testing.T) {
	details := &fakeDetails{details: map[string]*billing.PackageDetail{
		"F1": {PackageOption: &billing.PackageOption{Code: "OPT1", Name: "Masa Aktif", Price: 1000}, TokenConfirmation: "tc1"},
		"F2": {PackageOptionCode: "OPT2", Name: "100MB", Price: 500, PackageOption: &billing.PackageOption{TokenConfirmation: "tc2"}},
	}}
	r := NewResolver(catalogServer(t, 200, twoOffers), details, newSession())

	plan, err := r.ResolveByName(context.Background(), "masa aktif 30 hari + 100mb")
	require.NoError(t, err)

	assert.Equal(t, "  Masa Aktif 30 Hari + 100MB ", plan.SelectedName)
	assert.Equal(t, "REDEEM", plan.PaymentFor)
	assert.True(t, plan.AskOverwrite)
	assert.Equal(t, int64(-1), plan.OverwriteAmount)
	assert.Equal(t, 0, plan.TokenConfirmationIdx)
	assert.Equal(t, 2, plan.AmountIdx)

	require.Len(t, plan.Items, 2)
	assert.Equal(t, models.PaymentLineItem{ItemCode: "OPT1", ItemName: "Masa Aktif", ItemPrice: 1000, TokenConfirmation: "tc1"}, plan.Items[0])
	assert.Equal(t, models.PaymentLineItem{ItemCode: "OPT2", ItemName: "100MB", ItemPrice: 500, TokenConfirmation: "tc2"}, plan.Items[1])
	assert.Equal(t, int64(1500), plan.TotalPrice())

	require.Len(t, details.refs, 2)
	assert.Equal(t, billing.PackageRef{FamilyCode: "F2", VariantCode: "V2", Order: 3, IsEnterprise: true}, details.refs[1])
}

func TestResolveByName_PartialNameMisses(t *testing.T) {
	r := NewResolver(catalogServer(t, 200, twoOffers), &fakeDetails{}, newSession())

	_, err := r.ResolveByName(context.Background(), "Masa Aktif")

	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestResolveByName_CatalogUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty list", 200, `[]`},
		{"not a list", 200, `{"name":"x"}`},
		{"server error", 500, `oops`},
		{"garbage", 200, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := &fakeDetails{}
			r := NewResolver(catalogServer(t, tt.status, tt.body), details, newSession())

			plan, err := r.ResolveByName(context.Background(), "anything")

			assert.Nil(t, plan)
			assert.ErrorIs(t, err, ErrCatalogUnavailable)
			assert.Empty(t, details.refs)
		})
	}
}

func TestResolveByName_EmptyOffer(t *testing.T) {
	r := NewResolver(catalogServer(t, 200, `[{"name":"Bare","packages":[]}]`), &fakeDetails{}, newSession())

	_, err := r.ResolveByName(context.Background(), "bare")

	assert.ErrorIs(t, err, ErrEmptyOffer)
}

func TestResolveByName_DetailFailureDiscardsPlan(t *testing.T) {
	details := &fakeDetails{err: errors.New("detail 500")}
	r := NewResolver(catalogServer(t, 200, twoOffers), details, newSession())

	plan, err := r.ResolveByName(context.Background(), "Masa Aktif 30 Hari + 100MB")

	assert.Nil(t, plan)
	assert.ErrorIs(t, err, ErrDetailUnavailable)
	assert.Len(t, details.refs, 1, "stops at the first failing package")
}

func TestResolveByName_SessionExpiresMidway(t *testing.T) {
	sess := newSession()
	details := &fakeDetails{
		details: map[string]*billing.PackageDetail{"F1": {OptionCode: "A"}},
		onCall:  func() { sess.Set(models.TokenBundle{}) },
	}
	r := NewResolver(catalogServer(t, 200, twoOffers), details, sess)

	_, err := r.ResolveByName(context.Background(), "Masa Aktif 30 Hari + 100MB")

	assert.ErrorIs(t, err, session.ErrExpired)
	assert.Len(t, details.refs, 1)
}

func TestResolveByName_NoSession(t *testing.T) {
	r := NewResolver("http://127.0.0.1:1", &fakeDetails{}, session.NewStatic(models.TokenBundle{}))

	_, err := r.ResolveByName(context.Background(), "x")

	assert.ErrorIs(t, err, session.ErrExpired)
}

func TestLineItem_Defaults(t *testing.T) {
	got := lineItem(&billing.PackageDetail{})

	assert.Equal(t, models.PaymentLineItem{ItemName: "Unknown"}, got)
}

func TestLineItem_Precedence(t *testing.T) {
	got := lineItem(&billing.PackageDetail{
		PackageOption:     &billing.PackageOption{PackageOptionCode: "nested-poc", TokenConfirmation: "opt-tc"},
		PackageOptionCode: "top-poc",
		OptionCode:        "top-oc",
		Name:              "Top",
		Price:             77,
	})

	assert.Equal(t, "nested-poc", got.ItemCode)
	assert.Equal(t, "Top", got.ItemName)
	assert.Equal(t, int64(77), got.ItemPrice)
	assert.Equal(t, "opt-tc", got.TokenConfirmation)
}
