package provider

import "errors"

var (
	errBlankID     = errors.New("blank provider id")
	errDuplicateID = errors.New("duplicate provider id")
	errIncomplete  = errors.New("missing client id/secret")
)
