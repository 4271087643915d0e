package job

// requestSchema is the JSON schema of a labeling job request.
const requestSchema = `
{ "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Connected-component labeling of a label volume",
  "type": "object",
  "definitions": {
    "point": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "integer"}
    },
    "extent": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "integer", "minimum": 1}
    },
    "array": {
      "type": "object",
      "properties": {
        "path": {
          "description": "raw file of packed little-endian labels in C order",
          "type": "string",
          "minLength": 1
        },
        "dtype": {
          "description": "label type of the raw file (default: uint64)",
          "enum": ["uint8", "uint16", "uint32", "uint64"]
        },
        "store": {
          "description": "alias of a [store] section of the configuration",
          "type": "string",
          "minLength": 1
        },
        "name": {
          "description": "name of the chunked array within the store",
          "type": "string",
          "pattern": "^[^/]+$"
        }
      },
      "oneOf": [
        {"required": ["path"], "not": {"anyOf": [{"required": ["store"]}, {"required": ["name"]}]}},
        {"required": ["store", "name"], "not": {"anyOf": [{"required": ["path"]}, {"required": ["dtype"]}]}}
      ],
      "additionalProperties": false
    }
  },
  "properties": {
    "input": {
      "description": "label volume to be labeled",
      "$ref": "#/definitions/array"
    },
    "output": {
      "description": "destination of the connected components, which must start out all zero",
      "$ref": "#/definitions/array"
    },
    "offset": {
      "description": "coordinate of the first voxel of the volume (default: origin)",
      "$ref": "#/definitions/point"
    },
    "shape": {
      "description": "extent of the volume along each axis, slowest axis first",
      "$ref": "#/definitions/extent"
    },
    "block-shape": {
      "description": "extent of the blocks processed by each worker (default: 64 along each axis)",
      "$ref": "#/definitions/extent"
    },
    "chunk-shape": {
      "description": "extent of stored chunks for arrays created in a store",
      "$ref": "#/definitions/extent"
    },
    "compression": {
      "description": "compression of stored chunks (default: snappy)",
      "enum": ["none", "snappy", "lz4", "zstd"]
    },
    "workers": {
      "description": "number of blocks processed concurrently",
      "type": "integer",
      "minimum": 1
    },
    "retries": {
      "description": "number of retries of a failed block",
      "type": "integer",
      "minimum": 0
    },
    "order": {
      "description": "order in which blocks are handed to workers (default: partition)",
      "enum": ["partition", "reverse", "shuffle"]
    },
    "seed": {
      "description": "seed of the shuffle order",
      "type": "integer"
    },
    "scratch-store": {
      "description": "alias of the store holding boundary entries (default: temporary badger store)",
      "type": "string",
      "minLength": 1
    },
    "mapping": {
      "description": "file receiving the final label mapping as 'from to' lines",
      "type": "string",
      "minLength": 1
    }
  },
  "required": ["input", "output", "shape"],
  "additionalProperties": false
}
`
