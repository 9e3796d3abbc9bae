package common

// AccessTokenHeaderName is the gRPC metadata key carrying the access token
// on inbound requests.
const AccessTokenHeaderName = "access_token"

// PeerAddressHeaderName is the metadata key a fronting proxy uses to pass the
// original client address. It feeds the login rate-limit identifier.
const PeerAddressHeaderName = "x-forwarded-for"
