// Package services implements the HTTP clients behind the sync: the [CRM] interface for HubSpot and the
// [Accounting] interface for Twinfield.
//
// # HubSpot
//
// [HubSpotClient] authenticates with a private app access token. Requests are paced with a token bucket
// limiter and go through the caller's [http.Client], normally one built by [NewHTTPClient].
// Invoice listing follows paging.next.after cursors; associations are read with the batch endpoint and any
// reported error surfaces as [shared.ErrAssociation].
//
// # Twinfield
//
// [TwinfieldAuth] wraps [oauth2.Config] for the OpenID Connect authorization code flow, sending the client
// secret with basic auth and a nonce with the authorization request.
//
// [TwinfieldClient] renders a SOAP envelope with [BuildEnvelope] and posts it to ProcessXmlDocument. The
// response is accepted only when [ScanErrors] finds no element flagged with an error.
//
// # Retries
//
// [RetryTransport] retries transport failures and configured statuses (500, 502 and 504 by default) with
// exponential backoff, replaying request bodies through GetBody.
package services
