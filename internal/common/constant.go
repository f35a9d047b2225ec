package common

// AuthorizationHeader carries admin bearer tokens.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeader.
const BearerPrefix = "Bearer "

// ServiceName is reported by the health service and in logs.
const ServiceName = "qrbind.Resolver"
