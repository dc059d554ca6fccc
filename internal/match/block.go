package match

import (
	"sort"
	"strconv"
)

// BuildBlocks partitions record indices into overlapping candidate groups
// keyed by cheap shared attributes. Several independent strategies run at
// once so a duplicate missed by one key is usually caught by another:
//
//	npi:<value>            exact NPI
//	phone7:<last 7 digits> phone suffix
//	phone3:<first 3>       phone prefix
//	lic:<STATE|number>     license composite
//	zip:<3 digits>         ZIP prefix
//	cityst:<city|state>    practice locality
//	namekey:<key>          coarse name key
//	loose:<zip3>_<last3>   ZIP prefix + last-name prefix
//	sn:<bucket>            sorted-neighborhood bucket over normalized last name
//
// Blocks whose member count falls outside [minBlock, maxBlock] are dropped:
// oversized blocks reintroduce quadratic cost, and the cap bounds per-block
// pairwise work.
func BuildBlocks(feats []Features, minBlock, maxBlock, sortBlockSize int) map[string][]int {
	blocks := make(map[string]map[int]bool)
	add := func(key string, idx int) {
		set, ok := blocks[key]
		if !ok {
			set = make(map[int]bool)
			blocks[key] = set
		}
		set[idx] = true
	}

	for i, f := range feats {
		if f.NPI != "" {
			add("npi:"+f.NPI, i)
		}
		if f.Phone != "" {
			add("phone7:"+runeSuffix(f.Phone, 7), i)
			add("phone3:"+runePrefix(f.Phone, 3), i)
		}
		if f.HasLicense() {
			add("lic:"+f.License, i)
		}
		if f.Zip3 != "" {
			add("zip:"+f.Zip3, i)
		}
		if f.CityState != "" && f.CityState != "|" {
			add("cityst:"+f.CityState, i)
		}
		if f.NameKey != "" {
			add("namekey:"+f.NameKey, i)
		}
		if f.Zip3 != "" && f.Last != "" {
			add("loose:"+f.Zip3+"_"+runePrefix(f.Last, 3), i)
		}
	}

	// Sorted neighborhood: bucket every sortBlockSize consecutive records
	// after a stable sort by normalized last name.
	order := make([]int, len(feats))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return feats[order[a]].Last < feats[order[b]].Last
	})
	for pos, idx := range order {
		add("sn:"+strconv.Itoa(pos/sortBlockSize), idx)
	}

	out := make(map[string][]int, len(blocks))
	for key, set := range blocks {
		if len(set) < minBlock || len(set) > maxBlock {
			continue
		}
		members := make([]int, 0, len(set))
		for idx := range set {
			members = append(members, idx)
		}
		sort.Ints(members)
		out[key] = members
	}
	return out
}
