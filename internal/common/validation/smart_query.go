package validation

// MaxMessageLength bounds the message accepted by the smart query transports.
const MaxMessageLength = 4000

// smartQueryInputSchema describes {message, caller} as sent by the Zeebe job
// and the HTTP API. Every caller field is optional and may be null;
// out-of-range coordinates are accepted and ignored by geo enrichment.
const smartQueryInputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["message"],
  "properties": {
    "message": {"type": "string", "maxLength": 4000},
    "caller": {
      "type": ["object", "null"],
      "properties": {
        "userId": {"type": ["string", "null"]},
        "roles": {"type": ["array", "null"], "items": {"type": "string"}},
        "activeRole": {"type": ["string", "null"]},
        "isAuthenticated": {"type": ["boolean", "null"]},
        "latitude": {"type": ["number", "null"]},
        "longitude": {"type": ["number", "null"]}
      }
    }
  }
}`

// SmartQueryInput validates smart query request bodies.
var SmartQueryInput = MustCompile("smart-query-input", smartQueryInputSchema)
