package version

// Version of flagon
var Version = "0.1.0"
