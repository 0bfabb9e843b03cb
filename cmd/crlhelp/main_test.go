package main

import (
	"reflect"
	"testing"
)

func TestQueryArgsReorder(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "no flags",
			args: []string{"clinical", "deficiencies"},
			want: []string{"clinical", "deficiencies"},
		},
		{
			name: "flags already first",
			args: []string{"-limit", "5", "clinical"},
			want: []string{"-limit", "5", "clinical"},
		},
		{
			name: "flags after query",
			args: []string{"clinical", "deficiencies", "-limit", "5"},
			want: []string{"-limit", "5", "clinical", "deficiencies"},
		},
		{
			name: "double dash flag after query",
			args: []string{"cmc", "--output", "json"},
			want: []string{"--output", "json", "cmc"},
		},
		{
			name: "empty",
			args: []string{},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queryArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("queryArgsReorder(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single word", []string{"clinical"}, "clinical"},
		{"multiple words", []string{"manufacturing", "facility"}, "manufacturing facility"},
		{"pre-quoted", []string{"manufacturing facility"}, "manufacturing facility"},
		{"empty", []string{}, ""},
		{"whitespace only", []string{"  ", ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.want {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
