package main

import (
	"math"
	"reflect"
	"testing"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		name string
		pc   PaginationConfig
		want Pages
	}{
		{
			name: "returns empty list if total = 0",
			pc: PaginationConfig{
				ipp:   10,
				page:  0,
				total: 0,
			},
			want: Pages{},
		},
		{
			name: "returns empty list if total < ipp",
			pc: PaginationConfig{
				ipp:   10,
				page:  0,
				total: 3,
			},
			want: Pages{},
		},
		{
			name: "returns correct number of pages",
			pc: PaginationConfig{
				ipp:   10,
				page:  0,
				total: 13,
				url:   "http://example.com",
				param: "page",
			},
			want: Pages{
				Page{1, ""},
				Page{2, "http://example.com?page=2"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pagination(tt.pc); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Pagination() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPagination_CurrentPage(t *testing.T) {
	got := Pagination(PaginationConfig{
		ipp:   10,
		page:  2,
		total: 25,
		url:   "/folders/1/nodes",
		param: "page",
	})
	want := Pages{
		Page{1, "/folders/1/nodes?page=1"},
		Page{2, ""},
		Page{3, "/folders/1/nodes?page=3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Pagination() = %v, want %v", got, want)
	}
}

func TestGetPageNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"1", 0},
		{"3", 2},
		{"0", 0},
		{"-4", 0},
		{"abc", 0},
		{"92233720368547760", math.MaxInt/100 - 1},
		{"99999999999999999999", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := getPageNumber(tt.in, 100); got != tt.want {
				t.Errorf("getPageNumber(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
