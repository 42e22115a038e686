package common

// InternalTokenHeaderName is the gRPC metadata key carrying the shared
// service token for internal callers of the rate limit store.
const InternalTokenHeaderName = "internal_token"

// ProfileIDSetting is the Postgres run-time setting read by row-level
// security policies to identify the calling profile.
const ProfileIDSetting = "app.profile_id"

// Database roles assumed for the lifetime of an identity transaction.
const (
	AnonRole          = "buildbio_anon"
	AuthenticatedRole = "buildbio_authenticated"
)
