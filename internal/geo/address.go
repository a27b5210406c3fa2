package geo

import "strings"

// Address Nominatim addressdetails 字段
type Address struct {
	HouseNumber   string `json:"house_number"`
	Road          string `json:"road"`
	Residential   string `json:"residential"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Hamlet        string `json:"hamlet"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
	Country       string `json:"country"`
}

// FormatAddress 生成 "街道, 城镇, 州 邮编, 国家" 形式的地址。
// 空段落被丢弃，大小写不敏感的重复段只保留第一次出现；无任何段落时返回空串。
func FormatAddress(a *Address) string {
	if a == nil {
		return ""
	}

	street := joinNonEmpty(" ", a.HouseNumber, a.Road)
	if street == "" {
		street = a.Residential
	}
	locality := firstNonEmpty(a.City, a.Town, a.Village, a.Hamlet, a.Suburb, a.Neighbourhood)
	region := joinNonEmpty(" ", a.State, a.Postcode)

	seen := make(map[string]bool, 4)
	segments := make([]string, 0, 4)
	for _, seg := range []string{street, locality, region, a.Country} {
		seg = collapseSpaces(seg)
		if seg == "" {
			continue
		}
		k := strings.ToLower(seg)
		if seen[k] {
			continue
		}
		seen[k] = true
		segments = append(segments, seg)
	}

	return strings.Join(segments, ", ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, sep))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
