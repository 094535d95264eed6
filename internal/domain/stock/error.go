package stock

import "errors"

var ErrUnknownProduct = errors.New("stock references unknown product")
