package socket

var Classify = classify
