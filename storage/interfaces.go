package storage

import "gmaps-scraper/models"

// BusinessWriter is the interface any export backend must satisfy.
type BusinessWriter interface {
	Write(businesses []*models.Business) error
	Close() error
}
