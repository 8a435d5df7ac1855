package summary

// DocumentInstruction is the user turn sent alongside an attached document.
const DocumentInstruction = "总结这份文档"

// linkInstruction prefixes extracted web page content.
const linkInstruction = "总结以下网页内容"
