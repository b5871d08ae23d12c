// Package upload issues presigned S3 PUT URLs so browsers can send product
// images and videos straight to object storage.
//
// Objects are keyed per tenant and month:
//
//	tenants/{tenantId}/{yyyy}/{mm}/{uuid}{ext}
//
// The signer validates the declared content type against an allowlist of
// image/* and video/* types and the declared size against a maximum before
// signing. S3-compatible services are supported through Endpoint and
// UsePathStyle.
package upload
