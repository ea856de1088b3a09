package api

import (
	"net/http"
	"strconv"
)

const defaultLimit = 20
const maxLimit = 100

// PatientsPageSize é o tamanho de página da listagem de pacientes.
const PatientsPageSize = 10

// ParseLimitOffset reads limit and offset from query params. Default limit is 20, max 100.
// "page" (1-based) is accepted as an alternative to offset.
func ParseLimitOffset(r *http.Request) (limit, offset int) {
	limit = defaultLimit
	offset = 0
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}
	if s := q.Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	} else if s := q.Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

// pageOf converte offset em página 1-based.
func pageOf(limit, offset int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
