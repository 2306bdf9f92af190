package catalog

import "errors"

var (
	// ErrNotFound is returned when a catalog row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreExists is returned when a user already has a store.
	ErrStoreExists = errors.New("user already has a store")
	// ErrNoBaseUnit is returned when a waste would end up without a base
	// unit.
	ErrNoBaseUnit = errors.New("farm waste needs exactly one base unit")
	// ErrBaseUnitExists is returned when adding a second base unit.
	ErrBaseUnitExists = errors.New("farm waste already has a base unit")
	// ErrBaseUnitInUse is returned when deleting the base unit while other
	// units still reference it.
	ErrBaseUnitInUse = errors.New("base unit cannot be deleted while other units exist")
	// ErrInvalidEqualWith is returned when a unit conversion factor is not
	// usable.
	ErrInvalidEqualWith = errors.New("equalWith must be positive; base unit must have equalWith 1")
)
