package model

import "time"

// DictSet is a named, versioned code-set (RC001, ICD10, DRUG_ROUTE, ...).
type DictSet struct {
	SetCode   string    `db:"set_code" json:"set_code"`
	SetName   string    `db:"set_name" json:"set_name"`
	Version   string    `db:"version" json:"version,omitempty"`
	Source    string    `db:"source" json:"source,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DictItem is one (code, canonical name) pair within a set. Status 1 is
// active; retired items stay in place for historical records but are not
// valid for new entry.
type DictItem struct {
	ID             int64  `db:"id" json:"-"`
	SetCode        string `db:"set_code" json:"set_code"`
	Code           string `db:"code" json:"code"`
	Name           string `db:"name" json:"name"`
	ItemType       string `db:"item_type" json:"item_type,omitempty"`
	SelectOptional string `db:"select_optional" json:"select_optional,omitempty"`
	Pinyin         string `db:"pinyin" json:"-"`
	Status         int    `db:"status" json:"-"`
	SortNo         int    `db:"sort_no" json:"-"`
}

const DictStatusActive = 1

// DictSearchResult is one page of a dictionary search.
type DictSearchResult struct {
	SetCode  string     `json:"set_code"`
	Query    string     `json:"query"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Total    int        `json:"total"`
	Items    []DictItem `json:"items"`
}
