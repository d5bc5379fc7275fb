package prediction

import (
	"crypto/md5"
	"encoding/hex"

	"adserver/domain"
)

// CodeInvalidRequest is the response code of a request that failed validation.
const CodeInvalidRequest = 400

const (
	MsgUserIDRequired     = "user id required"
	MsgAdIDListRequired   = "ad id list required"
	MsgInvalidServiceType = "invalid service type"
)

// Validate returns the message of the first rule req breaks, or "".
func Validate(req domain.PredictRequest) string {
	switch {
	case req.User == "":
		return MsgUserIDRequired
	case len(req.AdIDs) == 0:
		return MsgAdIDListRequired
	case req.ServiceType == 0:
		return MsgInvalidServiceType
	}
	return ""
}

// UserGroup buckets a user into one of 16 groups: the last hex digit of the
// md5 of the user id.
func UserGroup(userID string) string {
	sum := md5.Sum([]byte(userID))
	h := hex.EncodeToString(sum[:])
	return h[len(h)-1:]
}
