package main

import (
	"fmt"
	"net/http"
)

func handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	fmt.Fprint(w, openAPISpec)
}

const openAPISpec = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Nostr API",
    "description": "Stateless HTTP gateway to Nostr: key derivation, NIP-01 event hashing, signing and verification, relay publish/fetch/list/stream, NIP-19 identifiers, NIP-04 encrypted messages and NIP-05 lookups. Every event read from a relay is id- and signature-checked before it is returned.",
    "version": "1.0.0",
    "license": {
      "name": "MIT"
    }
  },
  "tags": [
    {"name": "Keys", "description": "Key generation and conversion between hex and bech32"},
    {"name": "Events", "description": "NIP-01 event identity and relay I/O"},
    {"name": "Real-Time", "description": "WebSocket streaming of verified relay events"},
    {"name": "NIP-19", "description": "bech32 identifier encoding and decoding"},
    {"name": "NIP-04", "description": "Encrypted direct message payloads"},
    {"name": "Identity", "description": "NIP-05 identifier resolution"},
    {"name": "Infrastructure", "description": "Health and documentation"}
  ],
  "paths": {
    "/api/key/generate": {
      "get": {
        "tags": ["Keys"],
        "operationId": "generateKey",
        "summary": "Generate a fresh key pair",
        "responses": {
          "200": {"description": "New key pair", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/KeyPair"}}}}
        }
      }
    },
    "/api/key/from_sk": {
      "get": {
        "tags": ["Keys"],
        "operationId": "keyFromSK",
        "summary": "Derive a key pair from a hex secret key",
        "parameters": [{"name": "sk", "in": "query", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Key pair", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/KeyPair"}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/key/from_nsec": {
      "get": {
        "tags": ["Keys"],
        "operationId": "keyFromNsec",
        "summary": "Derive a key pair from an nsec",
        "parameters": [{"name": "nsec", "in": "query", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Key pair", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/KeyPair"}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/key/from_pk": {
      "get": {
        "tags": ["Keys"],
        "operationId": "keyFromPK",
        "summary": "Validate a hex public key and encode it as npub",
        "parameters": [{"name": "pk", "in": "query", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Public key", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/KeyPair"}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/key/from_npub": {
      "get": {
        "tags": ["Keys"],
        "operationId": "keyFromNpub",
        "summary": "Decode and validate an npub",
        "parameters": [{"name": "npub", "in": "query", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Public key", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/KeyPair"}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/key/from": {
      "get": {
        "tags": ["Keys"],
        "operationId": "keyFrom",
        "summary": "Derive keys from the first of sk, nsec, pk or npub",
        "parameters": [
          {"name": "sk", "in": "query", "schema": {"type": "string"}},
          {"name": "nsec", "in": "query", "schema": {"type": "string"}},
          {"name": "pk", "in": "query", "schema": {"type": "string"}},
          {"name": "npub", "in": "query", "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Key pair", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/KeyPair"}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/event/hash": {
      "post": {
        "tags": ["Events"],
        "operationId": "hashEvent",
        "summary": "Compute the NIP-01 id of an event",
        "description": "created_at defaults to the current time.",
        "requestBody": {"$ref": "#/components/requestBodies/EventBody"},
        "responses": {
          "200": {"description": "Event id", "content": {"application/json": {"schema": {"type": "object", "properties": {"hash": {"type": "string"}}}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/event/sign": {
      "post": {
        "tags": ["Events"],
        "operationId": "signEvent",
        "summary": "Sign an event with a secret key",
        "description": "pubkey, id and sig are set from sk. Signing is deterministic.",
        "requestBody": {"$ref": "#/components/requestBodies/EventBody"},
        "responses": {
          "200": {"description": "Signed event", "content": {"application/json": {"schema": {"type": "object", "properties": {"sign": {"type": "string"}, "event": {"$ref": "#/components/schemas/Event"}}}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/event/verify": {
      "post": {
        "tags": ["Events"],
        "operationId": "verifyEvent",
        "summary": "Check an event's id and signature",
        "description": "A well-formed event that fails verification returns 200 with verify=false.",
        "requestBody": {"$ref": "#/components/requestBodies/EventBody"},
        "responses": {
          "200": {"description": "Verification result", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/VerifyResponse"}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/event/publish": {
      "post": {
        "tags": ["Events"],
        "operationId": "publishEvent",
        "summary": "Sign (when sk is given) and publish an event to relays",
        "requestBody": {"$ref": "#/components/requestBodies/EventBody"},
        "responses": {
          "200": {"description": "At least one relay accepted the event"},
          "400": {"$ref": "#/components/responses/BadRequest"},
          "502": {"description": "No relay accepted the event"}
        }
      }
    },
    "/api/event/get": {
      "post": {
        "tags": ["Events"],
        "operationId": "getEvent",
        "summary": "Fetch the first verified event matching a filter",
        "requestBody": {"$ref": "#/components/requestBodies/FilterBody"},
        "responses": {
          "200": {"description": "Event, or null when none matched", "content": {"application/json": {"schema": {"type": "object", "properties": {"event": {"$ref": "#/components/schemas/Event"}}}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/event/list": {
      "post": {
        "tags": ["Events"],
        "operationId": "listEvents",
        "summary": "List verified events matching a filter, newest first",
        "description": "limit is capped at 500.",
        "requestBody": {"$ref": "#/components/requestBodies/FilterBody"},
        "responses": {
          "200": {"description": "Events", "content": {"application/json": {"schema": {"type": "object", "properties": {"events": {"type": "array", "items": {"$ref": "#/components/schemas/Event"}}}}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/event/stream": {
      "get": {
        "tags": ["Real-Time"],
        "operationId": "streamEvents",
        "summary": "WebSocket stream of verified relay events",
        "description": "Send {\"type\":\"subscribe\",\"filter\":{...},\"relays\":[...]} to receive {\"type\":\"event\"} messages. A plain GET returns endpoint documentation.",
        "responses": {
          "101": {"description": "Switching to WebSocket"},
          "200": {"description": "Endpoint documentation"}
        }
      }
    },
    "/api/nip19/decode": {
      "post": {
        "tags": ["NIP-19"],
        "operationId": "nip19Decode",
        "summary": "Decode any NIP-19 string",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object", "required": ["n"], "properties": {"n": {"type": "string"}}}}}},
        "responses": {
          "200": {"description": "Decoded value", "content": {"application/json": {"schema": {"type": "object", "properties": {"type": {"type": "string"}, "data": {}}}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/nip19/nsec": {"post": {"tags": ["NIP-19"], "operationId": "nip19Nsec", "summary": "Encode {sk} as nsec", "responses": {"200": {"description": "nsec"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/api/nip19/npub": {"post": {"tags": ["NIP-19"], "operationId": "nip19Npub", "summary": "Encode {pk} as npub", "responses": {"200": {"description": "npub"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/api/nip19/note": {"post": {"tags": ["NIP-19"], "operationId": "nip19Note", "summary": "Encode {note} event id as note", "responses": {"200": {"description": "note"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/api/nip19/nprofile": {"post": {"tags": ["NIP-19"], "operationId": "nip19Nprofile", "summary": "Encode {profile:{pubkey,relays}} as nprofile", "responses": {"200": {"description": "nprofile"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/api/nip19/nevent": {"post": {"tags": ["NIP-19"], "operationId": "nip19Nevent", "summary": "Encode {event:{id,relays,author}} as nevent", "responses": {"200": {"description": "nevent"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/api/nip19/naddr": {"post": {"tags": ["NIP-19"], "operationId": "nip19Naddr", "summary": "Encode {addr:{identifier,pubkey,kind,relays}} as naddr", "responses": {"200": {"description": "naddr"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/api/nip19/nrelay": {"post": {"tags": ["NIP-19"], "operationId": "nip19Nrelay", "summary": "Encode {relay} url as nrelay", "responses": {"200": {"description": "nrelay"}, "400": {"$ref": "#/components/responses/BadRequest"}}}},
    "/api/nip04/encrypt": {
      "post": {
        "tags": ["NIP-04"],
        "operationId": "nip04Encrypt",
        "summary": "Encrypt content from sk to pk",
        "requestBody": {"$ref": "#/components/requestBodies/NIP04Body"},
        "responses": {"200": {"description": "{encrypt}"}, "400": {"$ref": "#/components/responses/BadRequest"}}
      }
    },
    "/api/nip04/decrypt": {
      "post": {
        "tags": ["NIP-04"],
        "operationId": "nip04Decrypt",
        "summary": "Decrypt content sent by pk to sk",
        "requestBody": {"$ref": "#/components/requestBodies/NIP04Body"},
        "responses": {"200": {"description": "{decrypt}"}, "400": {"$ref": "#/components/responses/BadRequest"}}
      }
    },
    "/api/nip05/profile": {
      "get": {
        "tags": ["Identity"],
        "operationId": "nip05Profile",
        "summary": "Resolve name@domain to a pubkey and relays",
        "parameters": [{"name": "user", "in": "query", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Profile pointer", "content": {"application/json": {"schema": {"type": "object", "properties": {"pubkey": {"type": "string"}, "relays": {"type": "array", "items": {"type": "string"}}}}}}},
          "400": {"$ref": "#/components/responses/BadRequest"}
        }
      }
    },
    "/api/nip05/batch": {
      "post": {
        "tags": ["Identity"],
        "operationId": "nip05Batch",
        "summary": "Resolve up to 50 identifiers concurrently",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object", "required": ["users"], "properties": {"users": {"type": "array", "maxItems": 50, "items": {"type": "string"}}}}}}},
        "responses": {"200": {"description": "Per-identifier results"}, "400": {"$ref": "#/components/responses/BadRequest"}}
      }
    },
    "/api/nip05/reverse": {
      "get": {
        "tags": ["Identity"],
        "operationId": "nip05Reverse",
        "summary": "Find and check the NIP-05 identifier a pubkey claims",
        "parameters": [{"name": "pubkey", "in": "query", "required": true, "schema": {"type": "string"}, "description": "Hex pubkey or npub"}],
        "responses": {"200": {"description": "Claimed identifier and whether it resolves back"}, "400": {"$ref": "#/components/responses/BadRequest"}}
      }
    },
    "/health": {
      "get": {
        "tags": ["Infrastructure"],
        "operationId": "health",
        "summary": "Service health",
        "responses": {"200": {"description": "Status, uptime and configured relays"}}
      }
    },
    "/openapi.json": {
      "get": {
        "tags": ["Infrastructure"],
        "operationId": "openapi",
        "summary": "This document",
        "responses": {"200": {"description": "OpenAPI 3.0 document"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Event": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "description": "64 lowercase hex characters"},
          "pubkey": {"type": "string", "description": "64 lowercase hex characters"},
          "created_at": {"type": "integer", "format": "int64"},
          "kind": {"type": "integer"},
          "tags": {"type": "array", "items": {"type": "array", "items": {"type": "string"}}},
          "content": {"type": "string"},
          "sig": {"type": "string", "description": "128 lowercase hex characters"}
        }
      },
      "Filter": {
        "type": "object",
        "properties": {
          "ids": {"type": "array", "items": {"type": "string"}},
          "authors": {"type": "array", "items": {"type": "string"}},
          "kinds": {"type": "array", "items": {"type": "integer"}},
          "since": {"type": "integer"},
          "until": {"type": "integer"},
          "limit": {"type": "integer"},
          "search": {"type": "string"}
        }
      },
      "KeyPair": {
        "type": "object",
        "properties": {
          "sk": {"type": "string"},
          "nsec": {"type": "string"},
          "pk": {"type": "string"},
          "npub": {"type": "string"}
        }
      },
      "VerifyResponse": {
        "type": "object",
        "properties": {
          "verify": {"type": "boolean"},
          "id": {"type": "string"},
          "computed_id": {"type": "string"},
          "checks": {"type": "array", "items": {"type": "object", "properties": {"field": {"type": "string"}, "status": {"type": "string", "enum": ["match", "divergent", "unverifiable"]}}}}
        }
      },
      "Error": {
        "type": "object",
        "properties": {"error": {"type": "string"}}
      }
    },
    "requestBodies": {
      "EventBody": {
        "required": true,
        "content": {"application/json": {"schema": {"type": "object", "properties": {
          "event": {"$ref": "#/components/schemas/Event"},
          "sk": {"type": "string"},
          "relay": {"type": "string"},
          "relays": {"type": "array", "items": {"type": "string"}}
        }}}}
      },
      "FilterBody": {
        "required": true,
        "content": {"application/json": {"schema": {"type": "object", "properties": {
          "filter": {"$ref": "#/components/schemas/Filter"},
          "relay": {"type": "string"},
          "relays": {"type": "array", "items": {"type": "string"}}
        }}}}
      },
      "NIP04Body": {
        "required": true,
        "content": {"application/json": {"schema": {"type": "object", "required": ["sk", "pk", "content"], "properties": {
          "sk": {"type": "string"},
          "pk": {"type": "string"},
          "content": {"type": "string"}
        }}}}
      }
    },
    "responses": {
      "BadRequest": {
        "description": "Malformed event, invalid key or bad request",
        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
      }
    }
  }
}`
