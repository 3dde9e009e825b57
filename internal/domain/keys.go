package domain

// KeyPrefix namespaces every key refrank writes to the KV store.
const KeyPrefix = "refrank:"
