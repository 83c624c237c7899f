package shared

// Version of the collab client package.
const Version = "0.1.0"
