// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
resource is a package that calls a protected API on behalf of an
authenticated user.  A Caller acquires an access token silently and hands it
to a Fetcher, writing the progress and the result to the page's API output
region.

The only Fetcher provided is Mock, which waits for a fixed delay and returns a
canned payload.  When given a TokenValidator (see WithTokenValidator) the
Mock checks the bearer token the way a resource server would before
responding.  A real API integration replaces it with WithFetcher.
*/
package resource
