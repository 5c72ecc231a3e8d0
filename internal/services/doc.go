// Package services implements the client for the mailworx webservice.
//
// # Agent Interface
//
// [Agent] lists the remote operations used by the campaign workflow. It is the seam used by tests:
// the tasks package only ever sees an Agent.
//
// # SOAP Client
//
// [Client] implements Agent over SOAP 1.1 (document/literal) against the ASMX endpoint.
//
// Every request is wrapped as <Operation xmlns="namespace"><request>...</request></Operation> and carries the
// [models.SecurityContext] and the request language. Responses are read from <OperationResponse><OperationResult>.
// A missing result element is reported as an absent result rather than an error.
//
// Polymorphic values (fields, import actions, send settings) are written with an xsi:type attribute, mirroring the
// .NET type hierarchy of the service.
//
// Outgoing calls are throttled with a [rate.Limiter]. There are no retries: a failed call is returned to the caller.
//
// # Error Handling
//
//   - [shared.ErrAPIRequest] : transport failure, non-2xx status or SOAP fault (see [Fault])
//   - [shared.ErrMissingCredentials], [shared.ErrInvalidConfig] : returned by [NewClient]
package services
