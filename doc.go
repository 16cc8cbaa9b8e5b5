// Package minimalkv defines the core contract, derived operations, and
// shared types of a uniform key-value storage abstraction. Callers store and
// retrieve named binary blobs against interchangeable backends without
// depending on backend-specific APIs.
//
// A backend implements the four-method Store contract; everything else (Get,
// Put, file transfer, eager listing, existence checks) is derived from it by
// the package-level functions. Optional capabilities such as native copy,
// URL generation, and time-to-live are separate interfaces probed at run
// time. Concrete backends live in subpackages such as memory, fs, redis,
// aws_s3, sqlstore, pebble, and cassandra; cross-cutting behaviors (read-only
// guarding, key prefixing, id generation, caching) are composed through the
// decorator and cache subpackages, and full stacks are assembled from URLs by
// the storefactory subpackage.
package minimalkv
