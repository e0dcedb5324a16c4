package codec

import "errors"

var errShortTile = errors.New("codec: decompressed tile is not exactly one tile's worth of pixels")
