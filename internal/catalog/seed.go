// Package catalog reads product catalog seed files.
package catalog

import (
	"fmt"
	"io"
	"os"

	"price-service/internal/model"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a catalog seed file:
//
//	products:
//	  - id: prod_123
//	    name: Fresh Milk 500ml
//	    category: dairy
//	    barcode: "6161100110011"
type File struct {
	Products []Entry `yaml:"products"`
}

type Entry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Barcode  string `yaml:"barcode"`
}

// Load reads and validates the seed file at path.
func Load(path string) ([]model.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	products, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return products, nil
}

// Decode parses a seed document. Every entry needs an id and a name, and ids
// must be unique.
func Decode(r io.Reader) ([]model.Product, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty catalog")
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]int, len(file.Products))
	products := make([]model.Product, 0, len(file.Products))
	for i, e := range file.Products {
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("product %d: id and name are required", i)
		}
		if len(e.ID) > 64 {
			return nil, fmt.Errorf("product %d: id longer than 64 characters", i)
		}
		if prev, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %s (first at %d)", i, e.ID, prev)
		}
		seen[e.ID] = i
		products = append(products, model.Product{
			ID:       e.ID,
			Name:     e.Name,
			Category: e.Category,
			Barcode:  e.Barcode,
		})
	}
	return products, nil
}
