package strixsdk

// Version is the API generation tag. Initialize rejects any other tag
// so binaries compiled against a different point-data contract fail
// fast instead of misreading packets.
const Version = 4

// VersionString identifies this SDK build.
const VersionString = "4.2.0"
