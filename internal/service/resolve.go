package service

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"listing_collector/internal/domain"
)

// Field resolution for canonical rows. Every attribute takes the first present
// value of its chain, left to right. Blank strings count as absent.
//
//	attribute         snapshot field    raw bag key        prior canonical   default
//	title             Title             "title"            Title             remote id
//	description       Description       "description"      Description       -
//	category_slug     CategorySlug      "categorySlug"     CategorySlug      -
//	subcategory_slug  SubcategorySlug   "subcategorySlug"  SubcategorySlug   -
//	seller_name       SellerName        "sellerName"       SellerName        -
//	seller_type       SellerType        "sellerType"       SellerType        -
//	location          Location          "location"         Location          -
//	image_url         ImageURL          "imageUrl"         ImageURL          -
//	price_current     Price             "price"            PriceCurrent      -
//	currency          Currency          "currency"         Currency          "AZN"
//	status            -                 -                  Status            "active"
//	is_new            see resolveIsNew
//	first_seen_at     -                 -                  FirstSeenAt       snapshot time
//	metadata          Raw               -                  Metadata          -
//
//	daily views       ViewCount         "viewCount"        -                 0
//	daily favorites   FavoritesCount    "favoritesCount"   -                 0
//	daily price       resolved price_current of the written canonical row
//	daily scraped_at  FetchedAt         -                  -                 snapshot time
type rule[T any] struct {
	field    func(*domain.RawListing) *T
	bagKey   string
	prior    func(*domain.CanonicalListing) *T
	fallback func(*domain.RawListing) *T
}

func (r rule[T]) resolve(raw *domain.RawListing, prior *domain.CanonicalListing) *T {
	if r.field != nil {
		if v := present(r.field(raw)); v != nil {
			return v
		}
	}
	if r.bagKey != "" {
		if v := present(bagValue[T](raw.Raw, r.bagKey)); v != nil {
			return v
		}
	}
	if r.prior != nil && prior != nil {
		if v := present(r.prior(prior)); v != nil {
			return v
		}
	}
	if r.fallback != nil {
		return r.fallback(raw)
	}
	return nil
}

const (
	defaultCurrency = "AZN"
	defaultStatus   = "active"
)

func constant[T any](v T) func(*domain.RawListing) *T {
	return func(*domain.RawListing) *T {
		c := v
		return &c
	}
}

func remoteIDTitle(r *domain.RawListing) *string {
	id := r.RemoteID
	return &id
}

func stringRule(key string, field func(*domain.RawListing) *string, prior func(*domain.CanonicalListing) *string) rule[string] {
	return rule[string]{field: field, bagKey: key, prior: prior}
}

var (
	titleRule = rule[string]{
		field:    func(r *domain.RawListing) *string { return r.Title },
		bagKey:   "title",
		prior:    func(c *domain.CanonicalListing) *string { return c.Title },
		fallback: remoteIDTitle,
	}
	descriptionRule = stringRule("description",
		func(r *domain.RawListing) *string { return r.Description },
		func(c *domain.CanonicalListing) *string { return c.Description })
	categoryRule = stringRule("categorySlug",
		func(r *domain.RawListing) *string { return r.CategorySlug },
		func(c *domain.CanonicalListing) *string { return c.CategorySlug })
	subcategoryRule = stringRule("subcategorySlug",
		func(r *domain.RawListing) *string { return r.SubcategorySlug },
		func(c *domain.CanonicalListing) *string { return c.SubcategorySlug })
	sellerNameRule = stringRule("sellerName",
		func(r *domain.RawListing) *string { return r.SellerName },
		func(c *domain.CanonicalListing) *string { return c.SellerName })
	sellerTypeRule = stringRule("sellerType",
		func(r *domain.RawListing) *string { return r.SellerType },
		func(c *domain.CanonicalListing) *string { return c.SellerType })
	locationRule = stringRule("location",
		func(r *domain.RawListing) *string { return r.Location },
		func(c *domain.CanonicalListing) *string { return c.Location })
	imageRule = stringRule("imageUrl",
		func(r *domain.RawListing) *string { return r.ImageURL },
		func(c *domain.CanonicalListing) *string { return c.ImageURL })
	priceRule = rule[float64]{
		field:  func(r *domain.RawListing) *float64 { return r.Price },
		bagKey: "price",
		prior:  func(c *domain.CanonicalListing) *float64 { return c.PriceCurrent },
	}
	currencyRule = rule[string]{
		field:    func(r *domain.RawListing) *string { return r.Currency },
		bagKey:   "currency",
		prior:    func(c *domain.CanonicalListing) *string { return c.Currency },
		fallback: constant(defaultCurrency),
	}
	statusRule = rule[string]{
		prior:    func(c *domain.CanonicalListing) *string { return c.Status },
		fallback: constant(defaultStatus),
	}
	isNewRule = rule[bool]{
		field:    func(r *domain.RawListing) *bool { return r.IsNew },
		bagKey:   "isNew",
		fallback: constant(true),
	}
	viewsRule = rule[int]{
		field:    func(r *domain.RawListing) *int { return r.ViewCount },
		bagKey:   "viewCount",
		fallback: constant(0),
	}
	favoritesRule = rule[int]{
		field:    func(r *domain.RawListing) *int { return r.FavoritesCount },
		bagKey:   "favoritesCount",
		fallback: constant(0),
	}
)

// resolveIsNew: a listing is only new the first time it is seen. Once a prior
// canonical row exists the flag is false regardless of the snapshot.
func resolveIsNew(raw *domain.RawListing, prior *domain.CanonicalListing) bool {
	if prior != nil {
		return false
	}
	return *isNewRule.resolve(raw, nil)
}

func resolveListing(raw *domain.RawListing, prior *domain.CanonicalListing, jobID string, seenAt time.Time) domain.CanonicalListing {
	firstSeen := seenAt
	if prior != nil && prior.FirstSeenAt != nil {
		firstSeen = *prior.FirstSeenAt
	}

	metadata := raw.Raw
	if metadata == nil && prior != nil {
		metadata = prior.Metadata
	}

	listing := domain.CanonicalListing{
		RemoteID:         raw.RemoteID,
		Title:            titleRule.resolve(raw, prior),
		Description:      descriptionRule.resolve(raw, prior),
		CategorySlug:     categoryRule.resolve(raw, prior),
		SubcategorySlug:  subcategoryRule.resolve(raw, prior),
		SellerName:       sellerNameRule.resolve(raw, prior),
		SellerType:       sellerTypeRule.resolve(raw, prior),
		Location:         locationRule.resolve(raw, prior),
		ImageURL:         imageRule.resolve(raw, prior),
		PriceCurrent:     priceRule.resolve(raw, prior),
		Currency:         currencyRule.resolve(raw, prior),
		Status:           statusRule.resolve(raw, prior),
		IsNew:            resolveIsNew(raw, prior),
		FirstSeenAt:      &firstSeen,
		LastSeenAt:       seenAt,
		LastScrapedJobID: jobID,
		Metadata:         metadata,
	}
	if prior != nil {
		listing.ID = prior.ID
	}
	return listing
}

func resolveDailyStat(raw *domain.RawListing, info domain.ListingInfo, jobID string, snapshotAt time.Time) domain.DailyStat {
	scrapedAt := snapshotAt
	if raw.FetchedAt != nil {
		scrapedAt = raw.FetchedAt.UTC()
	}
	return domain.DailyStat{
		ListingID:      info.ID,
		SnapshotDate:   snapshotDay(snapshotAt),
		ViewsTotal:     *viewsRule.resolve(raw, nil),
		FavoritesCount: *favoritesRule.resolve(raw, nil),
		Price:          info.PriceCurrent,
		ScrapedAt:      scrapedAt,
		JobID:          jobID,
	}
}

// snapshotDay is the UTC calendar day daily stats are keyed on.
func snapshotDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func present[T any](v *T) *T {
	if v == nil {
		return nil
	}
	if s, ok := any(v).(*string); ok && strings.TrimSpace(*s) == "" {
		return nil
	}
	return v
}

func bagValue[T any](bag map[string]any, key string) *T {
	v, ok := bag[key]
	if !ok || v == nil {
		return nil
	}

	var out T
	switch p := any(&out).(type) {
	case *string:
		s, ok := v.(string)
		if !ok {
			return nil
		}
		*p = s
	case *float64:
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		*p = f
	case *int:
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		*p = int(f)
	case *bool:
		b, ok := v.(bool)
		if !ok {
			return nil
		}
		*p = b
	default:
		return nil
	}
	return &out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func samePrice(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
