// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package common

import (
	logging "github.com/ipfs/go-log"
)

// Logger is the package-wide structured logger for low-level crypto/common
// helpers. Ceremony-, keygen-, signing-, manager-, retrier-, electoral- and
// witness-level code each obtain their own named logger instead of sharing
// this one.
var Logger = logging.Logger("common")
